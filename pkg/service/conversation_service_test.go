package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahtungko/aicbot/pkg/db"
	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/repository"
)

const testUser = "user-1"

func newTestStore(t *testing.T) *ConversationService {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return NewConversationService(repository.NewGormConversationRepository(gdb))
}

func defaultSettings() models.ConversationSettings {
	return models.ConversationSettings{Model: "gpt-3.5-turbo", Temperature: 0.7, MaxTokens: 4096}
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "hello world", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if conv.ID == "" {
		t.Fatalf("Create() returned empty id")
	}

	got, err := store.Get(ctx, testUser, conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "hello world" {
		t.Fatalf("Get() title = %q, want %q", got.Title, "hello world")
	}
	if got.Settings.Model != "gpt-3.5-turbo" {
		t.Fatalf("Get() settings model = %q", got.Settings.Model)
	}
}

func TestCreate_EmptyTitleDefaults(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create(context.Background(), testUser, "", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if conv.Title != "New Conversation" {
		t.Fatalf("Create() title = %q, want default", conv.Title)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), testUser, "no-such-id")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Get() error = %v, want ErrConversationNotFound", err)
	}
}

func TestGet_OtherUsersConversationHidden(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "mine", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.Get(ctx, "someone-else", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Get() as other user error = %v, want ErrConversationNotFound", err)
	}
}

func TestAddMessage_AppendsAndBumpsUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "t", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := conv.UpdatedAt

	time.Sleep(10 * time.Millisecond)

	msg := &models.Message{Role: models.RoleUser, Content: "hi"}
	if err := store.AddMessage(ctx, testUser, conv.ID, msg); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	got, err := store.Get(ctx, testUser, conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Fatalf("Get() messages = %+v, want the appended message", got.Messages)
	}
	if !got.UpdatedAt.After(before) {
		t.Fatalf("UpdatedAt not bumped: before=%v after=%v", before, got.UpdatedAt)
	}
}

func TestAddMessage_ConversationNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.AddMessage(context.Background(), testUser, "nope", &models.Message{Role: models.RoleUser, Content: "x"})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("AddMessage() error = %v, want ErrConversationNotFound", err)
	}
}

func TestHistory_ExcludesStreamingMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "t", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	msgs := []*models.Message{
		{Role: models.RoleUser, Content: "question"},
		{Role: models.RoleAssistant, Content: "partial answer", IsStreaming: true},
		{Role: models.RoleAssistant, Content: "full answer"},
	}
	for _, m := range msgs {
		if err := store.AddMessage(ctx, testUser, conv.ID, m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	history, err := store.History(ctx, testUser, conv.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() returned %d entries, want 2 (streaming excluded)", len(history))
	}
	for _, h := range history {
		if h.Content == "partial answer" {
			t.Fatalf("History() included an in-progress message")
		}
	}
}

func TestList_SortedByUpdatedAtDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, testUser, "first", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := store.Create(ctx, testUser, "second", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Touch the first conversation so it becomes the most recent.
	time.Sleep(10 * time.Millisecond)
	if err := store.AddMessage(ctx, testUser, first.ID, &models.Message{Role: models.RoleUser, Content: "x"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	convs, err := store.List(ctx, testUser)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("List() returned %d conversations, want 2", len(convs))
	}
	if convs[0].ID != first.ID || convs[1].ID != second.ID {
		t.Fatalf("List() order = [%s %s], want most recently updated first", convs[0].Title, convs[1].Title)
	}
}

func TestUpdate_RefreshesUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "old title", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := conv.UpdatedAt
	time.Sleep(10 * time.Millisecond)

	newTitle := "new title"
	updated, err := store.Update(ctx, testUser, conv.ID, models.UpdateConversationRequest{Title: &newTitle})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("Update() title = %q, want %q", updated.Title, newTitle)
	}
	if !updated.UpdatedAt.After(before) {
		t.Fatalf("Update() did not refresh UpdatedAt")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	store := newTestStore(t)

	title := "x"
	_, err := store.Update(context.Background(), testUser, "nope", models.UpdateConversationRequest{Title: &title})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Update() error = %v, want ErrConversationNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "t", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := store.Delete(ctx, testUser, conv.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Fatalf("Delete() = false, want true")
	}

	deleted, err = store.Delete(ctx, testUser, conv.ID)
	if err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if deleted {
		t.Fatalf("Delete() of missing conversation = true, want false")
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Zero-safe average with no conversations.
	stats, err := store.Stats(ctx, testUser)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalConversations != 0 || stats.AverageMessagesPerConversation != 0 {
		t.Fatalf("Stats() on empty store = %+v", stats)
	}

	conv, err := store.Create(ctx, testUser, "t", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.AddMessage(ctx, testUser, conv.ID, &models.Message{Role: models.RoleUser, Content: "m"}); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	stats, err = store.Stats(ctx, testUser)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalConversations != 1 || stats.TotalMessages != 3 {
		t.Fatalf("Stats() = %+v, want 1 conversation, 3 messages", stats)
	}
	if stats.AverageMessagesPerConversation != 3 {
		t.Fatalf("Stats() average = %v, want 3", stats.AverageMessagesPerConversation)
	}
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale, err := store.Create(ctx, testUser, "stale", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	fresh, err := store.Create(ctx, testUser, "fresh", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	// Only the fresh conversation is touched inside the prune window.
	if err := store.AddMessage(ctx, testUser, fresh.ID, &models.Message{Role: models.RoleUser, Content: "recent"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	removed, err := store.Prune(ctx, testUser, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune() removed %d, want 1", removed)
	}

	if _, err := store.Get(ctx, testUser, stale.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("stale conversation should be pruned, Get() error = %v", err)
	}
	if _, err := store.Get(ctx, testUser, fresh.ID); err != nil {
		t.Fatalf("fresh conversation should survive: %v", err)
	}
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, testUser, "t", defaultSettings())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.AddMessage(ctx, testUser, conv.ID, &models.Message{Role: models.RoleUser, Content: "m"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	if err := store.Reset(ctx, testUser); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	convs, err := store.List(ctx, testUser)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("List() after reset returned %d conversations", len(convs))
	}
}
