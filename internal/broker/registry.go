// Package broker implements the topic-based subscription registry used for
// broadcast fan-out. It replaces transport-specific group primitives with a
// plain topic → subscriber-set map so the hub logic stays transport-agnostic
// and testable without a live socket stack.
package broker

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// Registry is a concurrency-safe ports.SubscriptionRegistry. Topics are
// locked individually: a broadcast fanning out on one topic never blocks
// join/leave on another.
type Registry struct {
	mu     sync.RWMutex
	topics map[domain.Topic]*topicSet
	// byConn tracks which topics each connection joined, for LeaveAll.
	byConn map[string]map[domain.Topic]struct{}
	log    zerolog.Logger
}

type topicSet struct {
	mu      sync.RWMutex
	members map[string]ports.Subscriber
}

// NewRegistry creates an empty Registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		topics: make(map[domain.Topic]*topicSet),
		byConn: make(map[string]map[domain.Topic]struct{}),
		log:    log,
	}
}

// Join adds the subscriber to a topic. Joining the same topic twice is
// idempotent: the member set is keyed by connection ID, so no duplicate
// delivery can result.
func (r *Registry) Join(sub ports.Subscriber, topic domain.Topic) {
	r.mu.Lock()
	set, ok := r.topics[topic]
	if !ok {
		set = &topicSet{members: make(map[string]ports.Subscriber)}
		r.topics[topic] = set
	}
	joined, ok := r.byConn[sub.ID()]
	if !ok {
		joined = make(map[domain.Topic]struct{})
		r.byConn[sub.ID()] = joined
	}
	joined[topic] = struct{}{}
	r.mu.Unlock()

	set.mu.Lock()
	set.members[sub.ID()] = sub
	set.mu.Unlock()

	r.log.Debug().Str("connection_id", sub.ID()).Str("topic", string(topic)).Msg("subscriber joined")
}

// Leave removes the connection from a topic. Unknown pairs are a no-op.
func (r *Registry) Leave(connectionID string, topic domain.Topic) {
	r.mu.Lock()
	set := r.topics[topic]
	if joined, ok := r.byConn[connectionID]; ok {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(r.byConn, connectionID)
		}
	}
	r.mu.Unlock()

	if set == nil {
		return
	}
	set.mu.Lock()
	delete(set.members, connectionID)
	set.mu.Unlock()

	r.log.Debug().Str("connection_id", connectionID).Str("topic", string(topic)).Msg("subscriber left")
}

// LeaveAll removes the connection from every topic it joined. Called on
// disconnect so dead members never accumulate.
func (r *Registry) LeaveAll(connectionID string) {
	r.mu.Lock()
	joined := r.byConn[connectionID]
	delete(r.byConn, connectionID)
	sets := make([]*topicSet, 0, len(joined))
	for topic := range joined {
		if set, ok := r.topics[topic]; ok {
			sets = append(sets, set)
		}
	}
	r.mu.Unlock()

	for _, set := range sets {
		set.mu.Lock()
		delete(set.members, connectionID)
		set.mu.Unlock()
	}
}

// MembersOf returns a snapshot of the topic's current members.
func (r *Registry) MembersOf(topic domain.Topic) []ports.Subscriber {
	r.mu.RLock()
	set := r.topics[topic]
	r.mu.RUnlock()
	if set == nil {
		return nil
	}

	set.mu.RLock()
	out := make([]ports.Subscriber, 0, len(set.members))
	for _, sub := range set.members {
		out = append(out, sub)
	}
	set.mu.RUnlock()
	return out
}

// Broadcast sends the event to every member of the topic as of call time and
// returns the number of successful deliveries. Joins and leaves racing with
// the broadcast are not guaranteed to observe it. A failing subscriber is
// skipped, never aborting delivery to the rest.
func (r *Registry) Broadcast(topic domain.Topic, event domain.Event) int {
	members := r.MembersOf(topic)
	delivered := 0
	for _, sub := range members {
		if err := sub.Send(event); err != nil {
			r.log.Warn().Err(err).
				Str("connection_id", sub.ID()).
				Str("topic", string(topic)).
				Str("kind", string(event.Kind)).
				Msg("subscriber send failed")
			continue
		}
		delivered++
	}
	return delivered
}
