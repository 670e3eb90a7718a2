package chathub

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Presence tracks who is currently typing, per room. Entries are ephemeral
// by design: nothing here is persisted and everything is lost on restart.
//
// The expiry sweep is the one place a timeout is a correctness mechanism
// rather than an optimization: a client that crashes mid-typing never sends
// typing_stop, so the sweep synthesizes one.
type Presence struct {
	mu     sync.Mutex
	typing map[string]map[string]time.Time // roomID -> identity -> expiry

	ttl      time.Duration
	onExpire func(roomID, identity string)
	now      func() time.Time
}

func NewPresence(ttl time.Duration, onExpire func(roomID, identity string)) *Presence {
	return &Presence{
		typing:   make(map[string]map[string]time.Time),
		ttl:      ttl,
		onExpire: onExpire,
		now:      time.Now,
	}
}

// StartTyping sets or refreshes the expiring entry for identity in roomID.
func (p *Presence) StartTyping(roomID, identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.typing[roomID] == nil {
		p.typing[roomID] = make(map[string]time.Time)
	}
	p.typing[roomID][identity] = p.now().Add(p.ttl)
}

// StopTyping clears the entry immediately.
func (p *Presence) StopTyping(roomID, identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entries := p.typing[roomID]; entries != nil {
		delete(entries, identity)
		if len(entries) == 0 {
			delete(p.typing, roomID)
		}
	}
}

// TypingIn returns the identities currently typing in the room, sorted.
func (p *Presence) TypingIn(roomID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := lo.Keys(p.typing[roomID])
	sort.Strings(ids)
	return ids
}

// Run drives the time-based sweep until ctx is cancelled.
func (p *Presence) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}

// Sweep clears every entry whose expiry has elapsed and reports each one
// through onExpire so a synthetic typing_stop reaches the room.
func (p *Presence) Sweep() {
	type expired struct{ roomID, identity string }

	p.mu.Lock()
	now := p.now()
	var gone []expired
	for roomID, entries := range p.typing {
		for identity, deadline := range entries {
			if now.After(deadline) {
				delete(entries, identity)
				gone = append(gone, expired{roomID, identity})
			}
		}
		if len(entries) == 0 {
			delete(p.typing, roomID)
		}
	}
	p.mu.Unlock()

	// Callbacks run outside the lock; they only enqueue.
	for _, e := range gone {
		p.onExpire(e.roomID, e.identity)
	}
}
