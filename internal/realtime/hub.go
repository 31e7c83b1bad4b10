// Package realtime fans document changes out to live subscribers. A write to
// a conversation or message notifies every subscription holding the matching
// topic; the subscriber then re-fetches the full result set and treats it as
// authoritative. Push-based invalidation, pull-based resync.
package realtime

import (
	"sync"
)

type EventKind string

const (
	// EventConversations signals that the subscriber's conversation list
	// changed in some way and must be re-fetched in full.
	EventConversations EventKind = "conversations"
	// EventMessages signals that a watched conversation gained a message.
	EventMessages EventKind = "messages"
)

type Event struct {
	Kind           EventKind
	UserID         string
	ConversationID uint64
}

// Hub routes events to subscriptions. Subscriptions are keyed by user id for
// conversation-list events (a user's buyer-role and seller-role interests
// collapse into the one key) and by conversation id for message events.
type Hub struct {
	mu       sync.RWMutex
	userSubs map[string]map[*Subscription]struct{}
	convSubs map[uint64]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		userSubs: make(map[string]map[*Subscription]struct{}),
		convSubs: make(map[uint64]map[*Subscription]struct{}),
	}
}

// Subscription receives events on its channel until Unsubscribe is called.
// Events are dropped, not queued, when the subscriber lags; a dropped event
// is harmless because every delivery means "re-fetch everything" anyway.
type Subscription struct {
	hub    *Hub
	userID string

	mu     sync.Mutex
	convs  map[uint64]struct{}
	closed bool
	events chan Event
}

// Subscribe registers a live subscription for a user's conversation list.
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		convs:  make(map[uint64]struct{}),
		events: make(chan Event, 16),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.userSubs[userID] == nil {
		h.userSubs[userID] = make(map[*Subscription]struct{})
	}
	h.userSubs[userID][sub] = struct{}{}
	return sub
}

// Events is the subscriber's receive channel. It is closed by Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// WatchConversation adds a message-topic interest to the subscription.
func (s *Subscription) WatchConversation(convID uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.convs[convID] = struct{}{}
	s.mu.Unlock()

	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.hub.convSubs[convID] == nil {
		s.hub.convSubs[convID] = make(map[*Subscription]struct{})
	}
	s.hub.convSubs[convID][s] = struct{}{}
}

// UnwatchConversation drops a message-topic interest.
func (s *Subscription) UnwatchConversation(convID uint64) {
	s.mu.Lock()
	delete(s.convs, convID)
	s.mu.Unlock()

	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if subs, ok := s.hub.convSubs[convID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.hub.convSubs, convID)
		}
	}
}

// Unsubscribe tears down every topic the subscription holds and closes the
// event channel. No event is delivered after it returns; an in-flight notify
// observes the closed flag and drops the event instead.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	convs := make([]uint64, 0, len(s.convs))
	for id := range s.convs {
		convs = append(convs, id)
	}
	s.convs = nil
	s.mu.Unlock()

	s.hub.mu.Lock()
	if subs, ok := s.hub.userSubs[s.userID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.hub.userSubs, s.userID)
		}
	}
	for _, id := range convs {
		if subs, ok := s.hub.convSubs[id]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.convSubs, id)
			}
		}
	}
	s.hub.mu.Unlock()

	close(s.events)
}

func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// ConversationChanged notifies every subscription held by the given users.
func (h *Hub) ConversationChanged(userIDs ...string) {
	h.mu.RLock()
	var targets []*Subscription
	for _, uid := range userIDs {
		for sub := range h.userSubs[uid] {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()
	for _, sub := range targets {
		sub.deliver(Event{Kind: EventConversations, UserID: sub.userID})
	}
}

// MessagesChanged notifies watchers of one conversation's message stream.
func (h *Hub) MessagesChanged(convID uint64) {
	h.mu.RLock()
	var targets []*Subscription
	for sub := range h.convSubs[convID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()
	for _, sub := range targets {
		sub.deliver(Event{Kind: EventMessages, ConversationID: convID})
	}
}
