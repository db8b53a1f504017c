package client

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/utils"
)

// StorageVersion is the schema marker for the durable client state. A
// mismatch (or absent marker) is treated as a first run: legacy data is not
// parsed.
const StorageVersion = "1.0"

const (
	versionFile        = "version"
	conversationsFile  = "conversations.json"
	currentConvFile    = "current_conversation"
	unsentMessagesFile = "unsent_messages.json"
	lastSyncFile       = "last_sync"
)

// Storage persists client state as JSON documents under a state directory.
// All writes are atomic (temp file + rename). Unreadable or corrupt data
// degrades to empty so the client stays usable.
type Storage struct {
	dir      string
	firstRun bool
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewStorage opens (creating if necessary) the state directory and performs
// the version check. On a version mismatch the current marker is written and
// existing data is ignored.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create state directory %s", dir)
	}

	s := &Storage{dir: dir, logger: utils.GetLogger()}

	b, err := os.ReadFile(s.path(versionFile))
	if err != nil || string(b) != StorageVersion {
		s.firstRun = true
		// Legacy data from another schema version is never parsed.
		for _, name := range []string{conversationsFile, currentConvFile, unsentMessagesFile, lastSyncFile} {
			if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "remove legacy state file %s", name)
			}
		}
		if err := utils.AtomicWriteFile(s.path(versionFile), []byte(StorageVersion), 0o600); err != nil {
			return nil, errors.Wrap(err, "write storage version marker")
		}
	}

	return s, nil
}

// FirstRun reports whether the version check failed at open time.
func (s *Storage) FirstRun() bool {
	return s.firstRun
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON unmarshals the named file into v. Missing or corrupt files leave
// v untouched and report ok=false.
func (s *Storage) readJSON(name string, v any) bool {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.logger.Warn("corrupt client state file, ignoring", "file", name, "error", err)
		return false
	}
	return true
}

func (s *Storage) writeJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", name)
	}
	if err := utils.AtomicWriteFile(s.path(name), b, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

// SaveConversations persists the full conversation list and refreshes the
// last-sync timestamp.
func (s *Storage) SaveConversations(convs []models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeJSON(conversationsFile, convs); err != nil {
		return err
	}
	return utils.AtomicWriteFile(s.path(lastSyncFile), []byte(time.Now().UTC().Format(time.RFC3339)), 0o600)
}

// LoadConversations returns the persisted conversation list, or an empty list
// on a first run or unreadable data.
func (s *Storage) LoadConversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var convs []models.Conversation
	if !s.readJSON(conversationsFile, &convs) {
		return []models.Conversation{}
	}
	return convs
}

// SaveCurrentConversationID stores (or clears, for "") the active
// conversation id.
func (s *Storage) SaveCurrentConversationID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		err := os.Remove(s.path(currentConvFile))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "clear current conversation id")
		}
		return nil
	}
	return utils.AtomicWriteFile(s.path(currentConvFile), []byte(id), 0o600)
}

// LoadCurrentConversationID returns the active conversation id, or "" when
// unset.
func (s *Storage) LoadCurrentConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path(currentConvFile))
	if err != nil {
		return ""
	}
	return string(b)
}

// SaveUnsentMessages replaces the persisted offline queue.
func (s *Storage) SaveUnsentMessages(msgs []models.UnsentMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(unsentMessagesFile, msgs)
}

// LoadUnsentMessages returns the persisted offline queue, empty on first run
// or unreadable data.
func (s *Storage) LoadUnsentMessages() []models.UnsentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []models.UnsentMessage
	if !s.readJSON(unsentMessagesFile, &msgs) {
		return []models.UnsentMessage{}
	}
	return msgs
}

// LastSyncTime returns the timestamp of the last successful sync, or the zero
// time when never synced.
func (s *Storage) LastSyncTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path(lastSyncFile))
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, string(b))
	if err != nil {
		return time.Time{}
	}
	return t
}

// ClearAll removes every durable state file, including the version marker.
func (s *Storage) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range []string{versionFile, conversationsFile, currentConvFile, unsentMessagesFile, lastSyncFile} {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", name)
		}
	}
	return nil
}
