// Package bot contains the chat core: the in-memory channel registry, the
// cooldown tables, the declarative command table, and the dispatcher that
// gates every incoming chat line.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/zhekler/trackbot/db"
)

// ChannelStore is the slice of the persistence layer the registry needs.
type ChannelStore interface {
	All(ctx context.Context) ([]*db.Channel, error)
	Upsert(ctx context.Context, c *db.Channel) error
	SetFlag(ctx context.Context, channel, flag string, value bool) error
	Delete(ctx context.Context, channel string) error
}

// Registry is the live mirror of the channels table. Request-time decisions
// read the in-memory copy; every mutation is persisted before the copy
// changes, so memory never gets ahead of the store.
type Registry struct {
	store ChannelStore

	mu       sync.RWMutex
	channels map[string]*db.Channel
}

func NewRegistry(store ChannelStore) *Registry {
	return &Registry{store: store, channels: make(map[string]*db.Channel)}
}

// Load populates the registry from the store. Called once at boot, before
// the chat connection is established.
func (r *Registry) Load(ctx context.Context) error {
	rows, err := r.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]*db.Channel, len(rows))
	for _, c := range rows {
		r.channels[c.Channel] = c
	}
	return nil
}

// Get returns a copy of the channel entry, or nil when the bot does not
// know the channel.
func (r *Registry) Get(channel string) *db.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[channel]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Channels returns every known channel name.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.channels))
	for name := range r.channels {
		out = append(out, name)
	}
	return out
}

// Tracked returns copies of all entries with the given flag enabled.
func (r *Registry) Tracked(flag func(*db.Channel) bool) []db.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []db.Channel
	for _, c := range r.channels {
		if flag(c) {
			out = append(out, *c)
		}
	}
	return out
}

// TrackedChannels returns every channel eligible for match polling.
func (r *Registry) TrackedChannels() []db.Channel {
	return r.Tracked(func(c *db.Channel) bool { return c.Matches && c.ActiID != "" })
}

// Upsert persists a full entry and installs it in memory.
func (r *Registry) Upsert(ctx context.Context, c *db.Channel) error {
	if err := r.store.Upsert(ctx, c); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.channels[c.Channel] = &cp
	return nil
}

// SetFlag persists one feature flag, then updates the in-memory entry. A
// failed write leaves memory untouched so the two never diverge.
func (r *Registry) SetFlag(ctx context.Context, channel, flag string, value bool) error {
	if err := r.store.SetFlag(ctx, channel, flag, value); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[channel]
	if !ok {
		return fmt.Errorf("channel %q not in registry", channel)
	}
	switch flag {
	case "roulette":
		c.Roulette = value
	case "coinflip":
		c.Coinflip = value
	case "rps":
		c.RPS = value
	case "vanish":
		c.Vanish = value
	case "customs":
		c.Customs = value
	case "matches":
		c.Matches = value
	case "two_v_two":
		c.TwoVTwo = value
	case "duels":
		c.Duels = value
	case "subs":
		c.Subs = value
	case "presence":
		c.Presence = value
	case "paused":
		c.Paused = value
	case "thruweb":
		c.ThruWeb = value
	default:
		return fmt.Errorf("unknown channel flag %q", flag)
	}
	return nil
}

// Remove deletes the persisted row and the in-memory entry. From the
// dispatcher's point of view the two go together: a failed delete leaves
// both in place.
func (r *Registry) Remove(ctx context.Context, channel string) error {
	if err := r.store.Delete(ctx, channel); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, channel)
	return nil
}
