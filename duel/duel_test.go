package duel

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zhekler/trackbot/db"
)

type fakeDuelStore struct {
	winner, loser string
}

func (f *fakeDuelStore) Record(ctx context.Context, channel, userID string) (*db.DuelRecord, error) {
	return &db.DuelRecord{Channel: channel, UserID: userID}, nil
}

func (f *fakeDuelStore) RecordOutcome(ctx context.Context, channel, winner, loser string) error {
	f.winner, f.loser = winner, loser
	return nil
}

func newTestManager() *Manager {
	m := NewManager(&fakeDuelStore{})
	m.Intn = func(n int) int { return 0 }
	return m
}

func TestChallengeExclusivity(t *testing.T) {
	m := newTestManager()

	got := m.Challenge("chan", "alice", "bob")
	if !strings.Contains(got, "alice has challenged bob") {
		t.Fatalf("challenge reply = %q", got)
	}

	// Either side of a pending duel blocks new ones.
	if got := m.Challenge("chan", "alice", "carol"); !strings.Contains(got, "you already have a duel pending") {
		t.Errorf("challenger re-challenge reply = %q", got)
	}
	if got := m.Challenge("chan", "carol", "bob"); !strings.Contains(got, "bob already has a duel pending") {
		t.Errorf("target re-challenge reply = %q", got)
	}
	if got := m.Challenge("chan", "bob", "carol"); !strings.Contains(got, "you already have a duel pending") {
		t.Errorf("target outgoing reply = %q", got)
	}

	// A different channel is a separate table.
	if got := m.Challenge("other", "alice", "bob"); !strings.Contains(got, "alice has challenged bob") {
		t.Errorf("cross-channel challenge reply = %q", got)
	}
}

func TestChallengeSelf(t *testing.T) {
	m := newTestManager()
	if got := m.Challenge("chan", "alice", "alice"); !strings.Contains(got, "cannot duel yourself") {
		t.Errorf("self challenge reply = %q", got)
	}
}

func TestChallengeMissingTarget(t *testing.T) {
	m := newTestManager()
	if got := m.Challenge("chan", "alice", ""); !strings.Contains(got, "who do you want to duel") {
		t.Errorf("missing target reply = %q", got)
	}
}

func TestRejectClearsChallenge(t *testing.T) {
	m := newTestManager()
	m.Challenge("chan", "alice", "bob")

	// Only the target can reject.
	if got := m.Reject("chan", "alice"); !strings.Contains(got, "no duel to reject") {
		t.Errorf("challenger reject reply = %q", got)
	}
	if got := m.Reject("chan", "bob"); !strings.Contains(got, "bob has rejected the duel from alice") {
		t.Errorf("reject reply = %q", got)
	}
	// Both parties are free again.
	if got := m.Challenge("chan", "alice", "carol"); !strings.Contains(got, "has challenged") {
		t.Errorf("post-reject challenge reply = %q", got)
	}
}

func TestCancelOnlyOutgoing(t *testing.T) {
	m := newTestManager()
	m.Challenge("chan", "alice", "bob")

	if got := m.Cancel("chan", "bob"); !strings.Contains(got, "no outgoing duel") {
		t.Errorf("target cancel reply = %q", got)
	}
	if got := m.Cancel("chan", "alice"); !strings.Contains(got, "alice has cancelled the duel against bob") {
		t.Errorf("cancel reply = %q", got)
	}
}

func TestResolutionNamesCorrectPairWithMultiplePending(t *testing.T) {
	m := newTestManager()
	m.Challenge("chan", "alice", "bob")
	m.Challenge("chan", "carol", "dave")

	// Rejecting the first challenge must name its own parties, not whichever
	// pair slides into its slice slot.
	if got := m.Reject("chan", "bob"); !strings.Contains(got, "bob has rejected the duel from alice") {
		t.Errorf("reject reply = %q", got)
	}

	m.Challenge("chan", "alice", "bob")
	if got := m.Cancel("chan", "carol"); !strings.Contains(got, "carol has cancelled the duel against dave") {
		t.Errorf("cancel reply = %q", got)
	}

	m.Challenge("chan", "carol", "dave")
	store := &fakeDuelStore{}
	m.Store = store
	m.Intn = func(n int) int { return 1 } // challenger wins
	got, err := m.Accept(context.Background(), "chan", "bob")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !strings.Contains(got, "alice has won the duel against bob") {
		t.Errorf("accept reply = %q", got)
	}
	if store.winner != "alice" || store.loser != "bob" {
		t.Errorf("recorded outcome = %s over %s, want alice over bob", store.winner, store.loser)
	}

	// The untouched second challenge is still intact.
	if got := m.Reject("chan", "dave"); !strings.Contains(got, "dave has rejected the duel from carol") {
		t.Errorf("remaining reject reply = %q", got)
	}
}

func TestAcceptRecordsBothParties(t *testing.T) {
	m := newTestManager()
	store := m.Store.(*fakeDuelStore)
	m.Challenge("chan", "alice", "bob")

	got, err := m.Accept(context.Background(), "chan", "bob")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	// Intn pinned to 0 flips the win to the target.
	if !strings.Contains(got, "bob has won the duel against alice") {
		t.Errorf("accept reply = %q", got)
	}
	if store.winner != "bob" || store.loser != "alice" {
		t.Errorf("recorded outcome = %s over %s, want bob over alice", store.winner, store.loser)
	}
	if got := m.Challenge("chan", "alice", "bob"); !strings.Contains(got, "has challenged") {
		t.Errorf("post-accept challenge reply = %q", got)
	}
}

func TestSweepExpiresChallenges(t *testing.T) {
	m := newTestManager()
	m.Lifetime = time.Minute
	m.Challenge("chan", "alice", "bob")

	m.Sweep(time.Now().Add(30 * time.Second))
	if got := m.Challenge("chan", "alice", "carol"); !strings.Contains(got, "already have a duel pending") {
		t.Error("unexpired challenge should survive a sweep")
	}

	m.Sweep(time.Now().Add(2 * time.Minute))
	if got := m.Challenge("chan", "alice", "carol"); !strings.Contains(got, "has challenged") {
		t.Errorf("expired challenge should be swept, got %q", got)
	}
	// The swept target never accrued a loss; there is no store write to check
	// because expiry bypasses resolution entirely.
	if got := m.Challenge("chan", "bob", "dave"); !strings.Contains(got, "has challenged") {
		t.Errorf("swept target should be free, got %q", got)
	}
}
