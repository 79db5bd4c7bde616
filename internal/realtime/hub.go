// Package realtime fans typed row-change events out to subscribers. The hub
// owns one subscriber list per table+filter pair and guarantees that
// Unsubscribe detaches the channel, so view teardown cannot leak
// subscriptions. Delivery is at-least-once per retained event; a slow
// subscriber loses the oldest buffered event first, which is safe because
// consumers apply changes idempotently (last write wins).
package realtime

import (
	"sync"

	"github.com/PremHer/appdelivery-sub000/internal/metrics"
)

// ChangeType classifies a row change.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is one typed row-change event.
type Change struct {
	Table string     `json:"table"`
	Type  ChangeType `json:"type"`
	Row   any        `json:"row"`
	// Fields carries the filterable columns of the row as strings.
	Fields map[string]string `json:"-"`
}

// Filter restricts a subscription to rows whose column equals value.
// The zero Filter matches every row of the table.
type Filter struct {
	Column string
	Value  string
}

func (f Filter) matches(c Change) bool {
	if f.Column == "" {
		return true
	}
	return c.Fields[f.Column] == f.Value
}

const subscriberBuffer = 16

// Subscription is one subscriber's attachment to a table+filter pair.
type Subscription struct {
	C      <-chan Change
	ch     chan Change
	table  string
	filter Filter
	hub    *Hub
	once   sync.Once
}

// Unsubscribe detaches from the hub and closes C. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Hub routes published changes to matching subscriptions.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription // keyed by table
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]*Subscription)}
}

// Subscribe attaches to changes of table matching filter.
func (h *Hub) Subscribe(table string, filter Filter) *Subscription {
	ch := make(chan Change, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, table: table, filter: filter, hub: h}
	h.mu.Lock()
	h.subs[table] = append(h.subs[table], s)
	h.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()
	return s
}

// Publish delivers the change to every matching subscriber. When a
// subscriber's buffer is full the oldest buffered event is dropped so the
// newest state always gets through.
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs[c.Table] {
		if !s.filter.matches(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- c:
			default:
			}
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[s.table]
	for i, cur := range list {
		if cur == s {
			h.subs[s.table] = append(list[:i], list[i+1:]...)
			metrics.RealtimeSubscribers.Dec()
			return
		}
	}
}

// SubscriberCount reports the number of active subscriptions for a table.
func (h *Hub) SubscriberCount(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
