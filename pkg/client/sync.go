package client

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/utils"
)

// SyncResult is the structured outcome of a sync or replay. These operations
// never fail across their public boundary; callers inspect Success/Error.
type SyncResult struct {
	Success             bool                   `json:"success"`
	MergedConversations []models.Conversation  `json:"mergedConversations,omitempty"`
	FailedMessages      []models.UnsentMessage `json:"failedMessages,omitempty"`
	Error               string                 `json:"error,omitempty"`
}

// MergeConversation reconciles one conversation present on both sides.
// The backend wins outright whenever it is not strictly older (ties favor
// backend). When local is strictly newer, messages the backend has not seen
// are unioned into the backend's record; the backend's scalar fields (title,
// settings, timestamps) stay authoritative either way.
func MergeConversation(local, backend models.Conversation) models.Conversation {
	if !backend.UpdatedAt.Before(local.UpdatedAt) {
		return backend
	}

	backendIDs := make(map[string]struct{}, len(backend.Messages))
	for _, m := range backend.Messages {
		backendIDs[m.ID] = struct{}{}
	}

	var localOnly []models.Message
	for _, m := range local.Messages {
		if _, ok := backendIDs[m.ID]; !ok {
			localOnly = append(localOnly, m)
		}
	}
	if len(localOnly) == 0 {
		return backend
	}

	merged := backend
	merged.Messages = make([]models.Message, 0, len(backend.Messages)+len(localOnly))
	merged.Messages = append(merged.Messages, backend.Messages...)
	merged.Messages = append(merged.Messages, localOnly...)
	sort.SliceStable(merged.Messages, func(i, j int) bool {
		return merged.Messages[i].Timestamp.Before(merged.Messages[j].Timestamp)
	})
	return merged
}

// MergeConversations reconciles the local conversation list against a fresh
// backend snapshot. Local-only conversations are kept (assumed not yet
// synced, never deleted by a merge). The result is sorted by UpdatedAt
// descending.
func MergeConversations(local, backend []models.Conversation) []models.Conversation {
	localByID := make(map[string]models.Conversation, len(local))
	for _, c := range local {
		localByID[c.ID] = c
	}
	backendIDs := make(map[string]struct{}, len(backend))

	merged := make([]models.Conversation, 0, len(local)+len(backend))
	for _, b := range backend {
		backendIDs[b.ID] = struct{}{}
		if l, ok := localByID[b.ID]; ok {
			merged = append(merged, MergeConversation(l, b))
		} else {
			merged = append(merged, b)
		}
	}
	for _, l := range local {
		if _, ok := backendIDs[l.ID]; !ok {
			merged = append(merged, l)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})
	return merged
}

// Syncer reconciles locally held conversations with the backend and persists
// the merged result.
type Syncer struct {
	store  *Storage
	logger *slog.Logger
}

func NewSyncer(store *Storage) *Syncer {
	return &Syncer{store: store, logger: utils.GetLogger()}
}

// SyncWithBackend fetches the backend conversation list, merges it with
// local, and persists the merged result. Any failure (fetch or persist)
// yields a failed result without mutating durable state.
func (s *Syncer) SyncWithBackend(ctx context.Context, local []models.Conversation, fetch func(ctx context.Context) ([]models.Conversation, error)) SyncResult {
	backend, err := fetch(ctx)
	if err != nil {
		s.logger.Warn("sync fetch failed", "error", err)
		return SyncResult{Success: false, Error: err.Error()}
	}

	merged := MergeConversations(local, backend)

	if err := s.store.SaveConversations(merged); err != nil {
		s.logger.Warn("sync persist failed", "error", err)
		return SyncResult{Success: false, Error: err.Error()}
	}

	return SyncResult{Success: true, MergedConversations: merged}
}
