package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/ahtungko/aicbot/pkg/models"
	"github.com/ahtungko/aicbot/pkg/utils"
)

// ConnectivityMonitor is an observer registry for online/offline transitions.
// Redundant events (online while online, offline while offline) are dropped;
// each offline→online transition notifies reconnect listeners exactly once.
type ConnectivityMonitor struct {
	mu          sync.Mutex
	online      bool
	nextID      int
	listeners   map[int]func(online bool)
	onReconnect map[int]func()
}

// NewConnectivityMonitor starts in the online state, matching a freshly
// loaded client.
func NewConnectivityMonitor() *ConnectivityMonitor {
	return &ConnectivityMonitor{
		online:      true,
		listeners:   make(map[int]func(online bool)),
		onReconnect: make(map[int]func()),
	}
}

// Online reports the current connectivity state.
func (m *ConnectivityMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a listener for state changes and returns its
// unsubscribe function.
func (m *ConnectivityMonitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// OnReconnect registers a callback fired once per offline→online transition.
func (m *ConnectivityMonitor) OnReconnect(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.onReconnect[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.onReconnect, id)
	}
}

// SetOnline records a connectivity event. Only actual transitions notify
// listeners.
func (m *ConnectivityMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	var reconnect []func()
	if online {
		reconnect = make([]func(), 0, len(m.onReconnect))
		for _, fn := range m.onReconnect {
			reconnect = append(reconnect, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
	for _, fn := range reconnect {
		fn()
	}
}

// OfflineQueue durably records messages composed while disconnected and
// replays them on reconnect. The in-memory mirror and the durable queue are
// kept consistent: a durable write failure rolls the mirror back.
type OfflineQueue struct {
	mu     sync.Mutex
	store  *Storage
	queue  []models.UnsentMessage
	logger *slog.Logger
}

// NewOfflineQueue loads any previously queued messages from storage.
func NewOfflineQueue(store *Storage) *OfflineQueue {
	return &OfflineQueue{
		store:  store,
		queue:  store.LoadUnsentMessages(),
		logger: utils.GetLogger(),
	}
}

// Messages returns a snapshot of the queue in insertion order.
func (q *OfflineQueue) Messages() []models.UnsentMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.UnsentMessage, len(q.queue))
	copy(out, q.queue)
	return out
}

// QueueMessage durably appends msg. No network is attempted.
func (q *OfflineQueue) QueueMessage(msg models.UnsentMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := append(append([]models.UnsentMessage{}, q.queue...), msg)
	if err := q.store.SaveUnsentMessages(next); err != nil {
		return errors.Wrap(err, "persist offline queue")
	}
	q.queue = next
	return nil
}

// Remove deletes the entry with the given id, if present.
func (q *OfflineQueue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := make([]models.UnsentMessage, 0, len(q.queue))
	for _, m := range q.queue {
		if m.ID != id {
			next = append(next, m)
		}
	}
	if err := q.store.SaveUnsentMessages(next); err != nil {
		return errors.Wrap(err, "persist offline queue")
	}
	q.queue = next
	return nil
}

// Clear empties the queue.
func (q *OfflineQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.SaveUnsentMessages([]models.UnsentMessage{}); err != nil {
		return errors.Wrap(err, "persist offline queue")
	}
	q.queue = nil
	return nil
}

// SendFunc attempts delivery of one queued message.
type SendFunc func(ctx context.Context, conversationID, content string) error

// SendUnsentMessages replays the queue in insertion order through send.
// A failed send leaves its message queued and moves on to the next; the
// result lists every message still undelivered so the caller can retry later
// without resending successes.
func (q *OfflineQueue) SendUnsentMessages(ctx context.Context, send SendFunc) SyncResult {
	var failed []models.UnsentMessage

	for _, msg := range q.Messages() {
		if err := send(ctx, msg.ConversationID, msg.Content); err != nil {
			q.logger.Warn("offline replay failed", "message_id", msg.ID, "error", err)
			failed = append(failed, msg)
			continue
		}
		if err := q.Remove(msg.ID); err != nil {
			q.logger.Warn("failed to dequeue replayed message", "message_id", msg.ID, "error", err)
		}
	}

	return SyncResult{
		Success:        len(failed) == 0,
		FailedMessages: failed,
	}
}
