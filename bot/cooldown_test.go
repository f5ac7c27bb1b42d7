package bot

import (
	"testing"
	"time"
)

func TestTryChannelArmsImmediately(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldowns()
	c.now = func() time.Time { return now }

	if !c.TryChannel("chan", "!rr", time.Second) {
		t.Fatal("first attempt should pass")
	}
	// The cooldown armed on the passing attempt, so an immediate retry fails
	// even though no time has advanced.
	if c.TryChannel("chan", "!rr", time.Second) {
		t.Fatal("second attempt inside window should fail")
	}

	now = now.Add(999 * time.Millisecond)
	if c.TryChannel("chan", "!rr", time.Second) {
		t.Fatal("attempt just inside window should fail")
	}

	now = now.Add(time.Millisecond)
	if !c.TryChannel("chan", "!rr", time.Second) {
		t.Fatal("attempt at expiry should pass")
	}
}

func TestTryChannelIsolatesKeys(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldowns()
	c.now = func() time.Time { return now }

	if !c.TryChannel("a", "!rr", time.Minute) {
		t.Fatal("first channel should pass")
	}
	if !c.TryChannel("b", "!rr", time.Minute) {
		t.Fatal("other channel should be unaffected")
	}
	if !c.TryChannel("a", "!coin", time.Minute) {
		t.Fatal("other command should be unaffected")
	}
}

func TestTryUser(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldowns()
	c.now = func() time.Time { return now }

	if !c.TryUser("viewer", "!rr", 30*time.Second) {
		t.Fatal("first attempt should pass")
	}
	if c.TryUser("viewer", "!rr", 30*time.Second) {
		t.Fatal("repeat inside window should fail")
	}
	if !c.TryUser("other", "!rr", 30*time.Second) {
		t.Fatal("different user should be unaffected")
	}

	now = now.Add(30 * time.Second)
	if !c.TryUser("viewer", "!rr", 30*time.Second) {
		t.Fatal("attempt at expiry should pass")
	}
}

func TestFailedTryDoesNotExtendWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldowns()
	c.now = func() time.Time { return now }

	c.TryChannel("chan", "!rr", time.Second)
	now = now.Add(500 * time.Millisecond)
	c.TryChannel("chan", "!rr", time.Second) // denied, must not re-arm
	now = now.Add(500 * time.Millisecond)
	if !c.TryChannel("chan", "!rr", time.Second) {
		t.Fatal("window should expire from the original arm, not the denied retry")
	}
}
