// Package status holds transient user-facing messages, one independent
// slot per message kind, each clearing itself after its TTL.
package status

import (
	"sync"
	"time"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/model"
)

// Policy maps each kind to the TTL used by Emit. A non-positive TTL keeps
// the message until it is overwritten or cleared.
type Policy struct {
	ErrorTTL   time.Duration
	SuccessTTL time.Duration
	InfoTTL    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ErrorTTL:   6 * time.Second,
		SuccessTTL: 4 * time.Second,
	}
}

func (p Policy) ttl(kind model.StatusKind) time.Duration {
	switch kind {
	case model.StatusError:
		return p.ErrorTTL
	case model.StatusSuccess:
		return p.SuccessTTL
	default:
		return p.InfoTTL
	}
}

type slot struct {
	message    model.StatusMessage
	generation uint64
	timer      *time.Timer
}

type Reporter struct {
	policy Policy
	bus    event.Bus

	mu     sync.Mutex
	slots  map[model.StatusKind]*slot
	gen    uint64
	closed bool
}

func NewReporter(policy Policy, bus event.Bus) *Reporter {
	return &Reporter{
		policy: policy,
		bus:    bus,
		slots:  make(map[model.StatusKind]*slot),
	}
}

// Emit sets a message using the policy TTL for its kind.
func (r *Reporter) Emit(kind model.StatusKind, text string) {
	r.Set(kind, text, r.policy.ttl(kind))
}

// Set stores text under kind, replacing only that kind's previous message.
func (r *Reporter) Set(kind model.StatusKind, text string, ttl time.Duration) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.gen++
	generation := r.gen
	current := r.slots[kind]
	if current != nil && current.timer != nil {
		current.timer.Stop()
	}

	next := &slot{
		message: model.StatusMessage{
			Kind:         kind,
			Text:         text,
			ExpiresAfter: max(ttl, 0),
			SetAt:        time.Now().UTC(),
		},
		generation: generation,
	}
	if ttl > 0 {
		next.timer = time.AfterFunc(ttl, func() { r.expire(kind, generation) })
	}
	r.slots[kind] = next
	message := next.message
	r.mu.Unlock()

	r.publish(event.TypeStatusChanged, message)
}

// Clear removes the message of kind, if any.
func (r *Reporter) Clear(kind model.StatusKind) {
	r.mu.Lock()
	current, exists := r.slots[kind]
	if !exists || r.closed {
		r.mu.Unlock()
		return
	}
	if current.timer != nil {
		current.timer.Stop()
	}
	delete(r.slots, kind)
	r.mu.Unlock()

	r.publish(event.TypeStatusCleared, model.StatusMessage{Kind: kind})
}

func (r *Reporter) Get(kind model.StatusKind) (model.StatusMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.slots[kind]
	if !exists {
		return model.StatusMessage{}, false
	}
	return current.message, true
}

// Messages returns the visible messages ordered error, success, info.
func (r *Reporter) Messages() []model.StatusMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.StatusMessage, 0, len(r.slots))
	for _, kind := range model.StatusKinds {
		if current, exists := r.slots[kind]; exists {
			out = append(out, current.message)
		}
	}
	return out
}

// Close stops every pending expiry and drops all messages. Later calls to
// Set and Clear are ignored.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for kind, current := range r.slots {
		if current.timer != nil {
			current.timer.Stop()
		}
		delete(r.slots, kind)
	}
}

func (r *Reporter) expire(kind model.StatusKind, generation uint64) {
	r.mu.Lock()
	current, exists := r.slots[kind]
	// A newer Set owns the slot; this timer lost the race with Stop.
	if !exists || r.closed || current.generation != generation {
		r.mu.Unlock()
		return
	}
	delete(r.slots, kind)
	r.mu.Unlock()

	r.publish(event.TypeStatusCleared, model.StatusMessage{Kind: kind})
}

func (r *Reporter) publish(eventType event.Type, message model.StatusMessage) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(event.New(eventType, message))
}
