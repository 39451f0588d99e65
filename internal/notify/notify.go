// Package notify implements the scheduled in-game mail queue. Delivery
// runs against the engine's logical clock, never wall time, so a "5 second"
// professor email is just an entry 5000 ms ahead of the clock.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var ErrUnknownNotification = errors.New("unknown notification")

// Notification is one piece of scheduled mail.
type Notification struct {
	ID        string
	Sender    string
	Subject   string
	Body      string
	MissionID string
	DeliverAt int64 // logical clock ms
	Delivered bool
	Read      bool
}

// Queue holds pending and delivered notifications.
type Queue struct {
	mu        sync.Mutex
	logger    *slog.Logger
	pending   []Notification // kept sorted by DeliverAt, stable on insert order
	delivered []Notification
	seq       int
}

// New creates an empty queue.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger}
}

// Schedule inserts a notification for future delivery. A missing ID is
// assigned from an internal sequence.
func (q *Queue) Schedule(n Notification, deliverAt int64) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	if n.ID == "" {
		n.ID = fmt.Sprintf("mail-%d", q.seq)
	}
	n.DeliverAt = deliverAt
	n.Delivered = false
	n.Read = false

	idx := sort.Search(len(q.pending), func(i int) bool {
		return q.pending[i].DeliverAt > deliverAt
	})
	q.pending = append(q.pending, Notification{})
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = n

	q.logger.Debug("mail scheduled", "id", n.ID, "deliverAt", deliverAt)
	return n.ID
}

// Poll delivers every pending notification with DeliverAt <= now, in
// ascending scheduled order. Each notification is delivered exactly once;
// repeated polls return nothing new.
func (q *Queue) Poll(now int64) []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	cut := sort.Search(len(q.pending), func(i int) bool {
		return q.pending[i].DeliverAt > now
	})
	if cut == 0 {
		return nil
	}

	out := make([]Notification, cut)
	for i := 0; i < cut; i++ {
		n := q.pending[i]
		n.Delivered = true
		out[i] = n
		q.delivered = append(q.delivered, n)
	}
	q.pending = append([]Notification(nil), q.pending[cut:]...)

	q.logger.Debug("mail delivered", "count", len(out), "clock", now)
	return out
}

// Inbox returns delivered notifications, newest first.
func (q *Queue) Inbox() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.delivered))
	for i, n := range q.delivered {
		out[len(out)-1-i] = n
	}
	return out
}

// Unread returns the count of delivered but unread notifications.
func (q *Queue) Unread() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, n := range q.delivered {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags a delivered notification as read.
func (q *Queue) MarkRead(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.delivered {
		if q.delivered[i].ID == id {
			q.delivered[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, ErrUnknownNotification)
}

// IsRead reports whether a delivered notification has been read.
func (q *Queue) IsRead(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, n := range q.delivered {
		if n.ID == id {
			return n.Read
		}
	}
	return false
}

// Pending returns a copy of the undelivered entries, soonest first. Used
// by the save layer.
func (q *Queue) Pending() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.pending...)
}

// Restore reloads queue state from a save: delivered mail enters the inbox
// with its read flag intact, undelivered mail is rescheduled.
func (q *Queue) Restore(delivered, pending []Notification) {
	q.mu.Lock()
	q.delivered = append([]Notification(nil), delivered...)
	q.pending = nil
	q.mu.Unlock()

	for _, n := range pending {
		q.Schedule(n, n.DeliverAt)
	}
}
