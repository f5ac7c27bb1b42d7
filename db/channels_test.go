package db

import (
	"context"
	"testing"

	"github.com/zhekler/trackbot/testutil"
)

func channelStore(t *testing.T) *ChannelStore {
	t.Helper()
	conn := testutil.PG(t)
	if err := Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &ChannelStore{DB: conn}
}

func TestChannelRoundTrip(t *testing.T) {
	s := channelStore(t)
	ctx := context.Background()
	name := "testchan_roundtrip"
	t.Cleanup(func() { _ = s.Delete(ctx, name) })

	c := &Channel{
		Channel: name, DisplayName: "TestChan", ActiID: "Test#1234567",
		UnoID: "uno-1", Platform: "uno", TZOffsetMin: -300,
		Roulette: true, Matches: true, Presence: true,
	}
	if err := s.Upsert(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("get returned nil for existing channel")
	}
	if got.ActiID != c.ActiID || got.TZOffsetMin != -300 || !got.Roulette || got.Coinflip {
		t.Errorf("round trip = %+v", got)
	}

	// Upsert replaces in place.
	c.Roulette = false
	c.Duels = true
	if err := s.Upsert(ctx, c); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _ = s.Get(ctx, name)
	if got.Roulette || !got.Duels {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestChannelGetAbsent(t *testing.T) {
	s := channelStore(t)
	got, err := s.Get(context.Background(), "testchan_never_existed")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("get absent = %+v, want nil", got)
	}
}

func TestChannelSetFlag(t *testing.T) {
	s := channelStore(t)
	ctx := context.Background()
	name := "testchan_setflag"
	t.Cleanup(func() { _ = s.Delete(ctx, name) })

	if err := s.Upsert(ctx, &Channel{Channel: name}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetFlag(ctx, name, "two_v_two", true); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	got, _ := s.Get(ctx, name)
	if !got.TwoVTwo {
		t.Error("flag did not persist")
	}

	if err := s.SetFlag(ctx, name, "not_a_flag", true); err == nil {
		t.Error("unknown flag must error")
	}
	if err := s.SetFlag(ctx, "testchan_missing", "duels", true); err == nil {
		t.Error("missing channel must error")
	}
}
