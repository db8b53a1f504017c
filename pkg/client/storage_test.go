package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahtungko/aicbot/pkg/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	return s
}

func sampleConversations() []models.Conversation {
	now := time.Now().UTC().Truncate(time.Second)
	return []models.Conversation{
		{
			ID:        "c1",
			Title:     "first",
			Settings:  models.ConversationSettings{Model: "gpt-4", Temperature: 0.5, MaxTokens: 4096},
			CreatedAt: now.Add(-time.Hour),
			UpdatedAt: now,
			Messages: []models.Message{
				{ID: "m1", ConversationID: "c1", Role: models.RoleUser, Content: "hi", Timestamp: now.Add(-time.Minute)},
			},
		},
	}
}

func TestStorage_FirstRunWritesVersionMarker(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	if !s.FirstRun() {
		t.Fatalf("fresh directory should be a first run")
	}

	b, err := os.ReadFile(filepath.Join(dir, "version"))
	if err != nil {
		t.Fatalf("version marker not written: %v", err)
	}
	if string(b) != StorageVersion {
		t.Fatalf("version marker = %q, want %q", b, StorageVersion)
	}

	// Reopening with a matching marker is no longer a first run.
	s2, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage() reopen error = %v", err)
	}
	if s2.FirstRun() {
		t.Fatalf("matching version marker should not be a first run")
	}
}

func TestStorage_VersionMismatchIgnoresLegacyData(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	if err := s.SaveConversations(sampleConversations()); err != nil {
		t.Fatalf("SaveConversations() error = %v", err)
	}

	// Simulate an older client's marker.
	if err := os.WriteFile(filepath.Join(dir, "version"), []byte("0.9"), 0o600); err != nil {
		t.Fatalf("rewrite version marker: %v", err)
	}

	s2, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage() reopen error = %v", err)
	}
	if !s2.FirstRun() {
		t.Fatalf("mismatched version should be a first run")
	}
	if got := s2.LoadConversations(); len(got) != 0 {
		t.Fatalf("legacy data must not be parsed, got %d conversations", len(got))
	}
	if got := s2.LoadUnsentMessages(); len(got) != 0 {
		t.Fatalf("legacy queue must not be parsed, got %d entries", len(got))
	}
}

func TestStorage_ConversationsRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	want := sampleConversations()
	if err := s.SaveConversations(want); err != nil {
		t.Fatalf("SaveConversations() error = %v", err)
	}

	got := s.LoadConversations()
	if len(got) != 1 {
		t.Fatalf("LoadConversations() returned %d, want 1", len(got))
	}
	if got[0].ID != "c1" || got[0].Title != "first" {
		t.Fatalf("conversation = %+v", got[0])
	}
	if len(got[0].Messages) != 1 || got[0].Messages[0].ID != "m1" {
		t.Fatalf("messages = %+v", got[0].Messages)
	}
	if !got[0].UpdatedAt.Equal(want[0].UpdatedAt) {
		t.Fatalf("UpdatedAt = %v, want %v", got[0].UpdatedAt, want[0].UpdatedAt)
	}
}

func TestStorage_SaveConversationsRefreshesLastSync(t *testing.T) {
	s := newTestStorage(t)

	if !s.LastSyncTime().IsZero() {
		t.Fatalf("LastSyncTime() before any save should be zero")
	}
	if err := s.SaveConversations(nil); err != nil {
		t.Fatalf("SaveConversations() error = %v", err)
	}
	if s.LastSyncTime().IsZero() {
		t.Fatalf("LastSyncTime() after save should be set")
	}
}

func TestStorage_CorruptDataDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	if err := s.SaveConversations(sampleConversations()); err != nil {
		t.Fatalf("SaveConversations() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "conversations.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	s2, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage() reopen error = %v", err)
	}
	if got := s2.LoadConversations(); len(got) != 0 {
		t.Fatalf("corrupt data should degrade to empty, got %d", len(got))
	}
}

func TestStorage_CurrentConversationID(t *testing.T) {
	s := newTestStorage(t)

	if got := s.LoadCurrentConversationID(); got != "" {
		t.Fatalf("LoadCurrentConversationID() on fresh storage = %q", got)
	}
	if err := s.SaveCurrentConversationID("c42"); err != nil {
		t.Fatalf("SaveCurrentConversationID() error = %v", err)
	}
	if got := s.LoadCurrentConversationID(); got != "c42" {
		t.Fatalf("LoadCurrentConversationID() = %q, want c42", got)
	}
	if err := s.SaveCurrentConversationID(""); err != nil {
		t.Fatalf("SaveCurrentConversationID(\"\") error = %v", err)
	}
	if got := s.LoadCurrentConversationID(); got != "" {
		t.Fatalf("LoadCurrentConversationID() after clear = %q", got)
	}
}

func TestStorage_ClearAll(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SaveConversations(sampleConversations()); err != nil {
		t.Fatalf("SaveConversations() error = %v", err)
	}
	if err := s.SaveUnsentMessages([]models.UnsentMessage{{ID: "u1"}}); err != nil {
		t.Fatalf("SaveUnsentMessages() error = %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if got := s.LoadConversations(); len(got) != 0 {
		t.Fatalf("conversations after ClearAll = %d", len(got))
	}
	if got := s.LoadUnsentMessages(); len(got) != 0 {
		t.Fatalf("unsent messages after ClearAll = %d", len(got))
	}
}
