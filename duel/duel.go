// Package duel implements chat duels: a challenge held open until accepted,
// rejected, cancelled, or expired, resolved by a fair coin flip with a timed
// suspension for the loser.
package duel

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/zhekler/trackbot/db"
)

type challenge struct {
	challenger string
	target     string
	expires    time.Time
}

// Store persists resolved duel outcomes and cumulative tallies.
type Store interface {
	Record(ctx context.Context, channel, userID string) (*db.DuelRecord, error)
	RecordOutcome(ctx context.Context, channel, winner, loser string) error
}

// Manager owns the pending-challenge table and resolution. Pending
// challenges are process-local; only resolved outcomes hit the store.
type Manager struct {
	Store       Store
	Intn        func(n int) int
	Lifetime    time.Duration
	TimeoutSecs int

	mu      sync.Mutex
	pending map[string][]challenge // by channel
}

func NewManager(store Store) *Manager {
	return &Manager{
		Store:       store,
		Intn:        rand.Intn,
		Lifetime:    5 * time.Minute,
		TimeoutSecs: 60,
		pending:     make(map[string][]challenge),
	}
}

func (m *Manager) party(channel, user string) *challenge {
	for i := range m.pending[channel] {
		c := &m.pending[channel][i]
		if c.challenger == user || c.target == user {
			return c
		}
	}
	return nil
}

func (m *Manager) drop(channel string, c *challenge) {
	list := m.pending[channel]
	for i := range list {
		if list[i].challenger == c.challenger && list[i].target == c.target {
			m.pending[channel] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Challenge opens a duel from challenger to target. A user may hold at most
// one open challenge per channel, on either side of it.
func (m *Manager) Challenge(channel, challenger, target string) string {
	if target == "" {
		return fmt.Sprintf("@%s: who do you want to duel?", challenger)
	}
	if target == challenger {
		return fmt.Sprintf("@%s: you cannot duel yourself.", challenger)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.party(channel, challenger) != nil {
		return fmt.Sprintf("@%s: you already have a duel pending.", challenger)
	}
	if m.party(channel, target) != nil {
		return fmt.Sprintf("@%s: %s already has a duel pending.", challenger, target)
	}
	m.pending[channel] = append(m.pending[channel], challenge{
		challenger: challenger,
		target:     target,
		expires:    time.Now().Add(m.Lifetime),
	})
	return fmt.Sprintf("%s has challenged %s to a duel! Type !accept or !reject.", challenger, target)
}

// Accept resolves the duel aimed at user with a fair coin flip. The loser
// eats a timed suspension; both parties' tallies are updated.
func (m *Manager) Accept(ctx context.Context, channel, user string) (string, error) {
	m.mu.Lock()
	c := m.party(channel, user)
	if c == nil || c.target != user {
		m.mu.Unlock()
		return fmt.Sprintf("@%s: you have no duel to accept.", user), nil
	}
	// Copy before drop: drop shifts the pending slice, so the pointer from
	// party would alias whichever challenge slid into its slot.
	ch := *c
	m.drop(channel, c)
	m.mu.Unlock()

	winner, loser := ch.challenger, ch.target
	if m.Intn(2) == 0 {
		winner, loser = ch.target, ch.challenger
	}
	if err := m.Store.RecordOutcome(ctx, channel, winner, loser); err != nil {
		return "", err
	}
	return fmt.Sprintf("/timeout %s %d %s has won the duel against %s!",
		loser, m.TimeoutSecs, winner, loser), nil
}

// Reject declines a duel aimed at user. No counters move.
func (m *Manager) Reject(channel, user string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.party(channel, user)
	if c == nil || c.target != user {
		return fmt.Sprintf("@%s: you have no duel to reject.", user)
	}
	ch := *c
	m.drop(channel, c)
	return fmt.Sprintf("%s has rejected the duel from %s.", user, ch.challenger)
}

// Cancel withdraws user's own outgoing challenge.
func (m *Manager) Cancel(channel, user string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.party(channel, user)
	if c == nil || c.challenger != user {
		return fmt.Sprintf("@%s: you have no outgoing duel.", user)
	}
	ch := *c
	m.drop(channel, c)
	return fmt.Sprintf("%s has cancelled the duel against %s.", user, ch.target)
}

// Score reports a user's cumulative duel record in the channel.
func (m *Manager) Score(ctx context.Context, channel, user string) (string, error) {
	rec, err := m.Store.Record(ctx, channel, user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s has won %d duels and lost %d.", user, rec.Wins, rec.Losses), nil
}

// Sweep clears challenges whose expiration has passed. Expired challenges
// never count as losses.
func (m *Manager) Sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, list := range m.pending {
		kept := list[:0]
		for _, c := range list {
			if now.Before(c.expires) {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(m.pending, channel)
		} else {
			m.pending[channel] = kept
		}
	}
}

// Run sweeps expired challenges every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	log := slog.Default().With(slog.String("component", "duel"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			m.Sweep(t)
			log.Debug("duel sweep complete")
		}
	}
}
