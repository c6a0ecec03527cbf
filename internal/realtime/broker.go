// Package realtime fans the Discord community status out to connected
// clients.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"falcaoProAPI/internal/types/discord"
)

// Relay forwards locally published values to other API instances.
type Relay interface {
	Publish(ctx context.Context, cfg discord.Config) error
}

// Broker retains the latest status and hands it to subscribers.
//
// Each subscriber owns a one-slot mailbox: a newer value replaces an unread
// older one, so a slow reader only ever misses intermediate states and never
// blocks a publisher. Values whose UpdatedAt is not after the retained one
// are dropped.
type Broker struct {
	mu      sync.Mutex
	current *discord.Config
	subs    map[*Subscription]struct{}
	relay   Relay
	logger  *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// SetRelay enables cross-instance propagation of Publish calls.
func (b *Broker) SetRelay(r Relay) {
	b.mu.Lock()
	b.relay = r
	b.mu.Unlock()
}

// Publish delivers cfg locally and, when a relay is set, to other instances.
func (b *Broker) Publish(ctx context.Context, cfg discord.Config) {
	if !b.Deliver(cfg) {
		return
	}

	b.mu.Lock()
	relay := b.relay
	b.mu.Unlock()

	if relay == nil {
		return
	}
	if err := relay.Publish(ctx, cfg); err != nil {
		b.logger.Warn("discord status relay publish failed", "error", err)
	}
}

// Deliver updates the retained value and notifies local subscribers only.
// It reports whether cfg was newer than the retained value.
func (b *Broker) Deliver(cfg discord.Config) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil && !cfg.UpdatedAt.After(b.current.UpdatedAt) {
		return false
	}

	c := cfg
	b.current = &c
	for s := range b.subs {
		s.offer(cfg)
	}
	return true
}

// Current returns the retained value, if any.
func (b *Broker) Current() (discord.Config, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return discord.Config{}, false
	}
	return *b.current, true
}

// Subscribe registers a mailbox that immediately holds the current value
// when one exists.
func (b *Broker) Subscribe() *Subscription {
	s := &Subscription{
		ch:     make(chan discord.Config, 1),
		broker: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[s] = struct{}{}
	if b.current != nil {
		s.offer(*b.current)
	}
	return s
}

func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type Subscription struct {
	ch     chan discord.Config
	broker *Broker
	closed bool
}

// Updates is closed once Close has been called.
func (s *Subscription) Updates() <-chan discord.Config {
	return s.ch
}

func (s *Subscription) Close() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(b.subs, s)
	close(s.ch)
}

// offer must be called with the broker lock held. The broker is the only
// sender, so after draining the slot the send cannot block.
func (s *Subscription) offer(cfg discord.Config) {
	select {
	case s.ch <- cfg:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- cfg
}
