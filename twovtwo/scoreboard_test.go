package twovtwo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/testutil"
)

func testBoard(t *testing.T, enabled map[string]bool) *Scoreboard {
	t.Helper()
	conn := testutil.PG(t)
	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := &db.TwoVTwoStore{DB: conn}
	t.Cleanup(func() {
		for ch := range enabled {
			_, _ = conn.Exec(`DELETE FROM twovtwo WHERE channel=$1`, ch)
		}
	})
	return &Scoreboard{
		Store:   store,
		Enabled: func(channel string) bool { return enabled[channel] },
	}
}

func TestUpdateRotatesPartnerRows(t *testing.T) {
	channels := map[string]bool{
		"tvt_home": true, "tvt_mate": true, "tvt_opp1": true, "tvt_opp2": true,
	}
	b := testBoard(t, channels)
	ctx := context.Background()

	err := b.Update(ctx, "tvt_home", 10, 7, 4, 2, "tvt_mate", "tvt_opp1", "tvt_opp2", 0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	home, _ := b.Store.Get(ctx, "tvt_home")
	if home.HomeKills != 10 || home.MateKills != 7 || home.Opp1Kills != 4 || home.Opp2Kills != 2 {
		t.Errorf("home row = %+v", home)
	}

	// The mate sees themselves as home with the counts swapped.
	mate, _ := b.Store.Get(ctx, "tvt_mate")
	if mate.HomeKills != 7 || mate.MateKills != 10 {
		t.Errorf("mate row = %+v", mate)
	}
	if mate.MateName != "tvt_home" {
		t.Errorf("mate's mate = %q, want tvt_home", mate.MateName)
	}

	// Opponents see themselves as home and the original pair as opponents.
	opp1, _ := b.Store.Get(ctx, "tvt_opp1")
	if opp1.HomeKills != 4 || opp1.MateKills != 2 || opp1.Opp1Kills != 10 || opp1.Opp2Kills != 7 {
		t.Errorf("opp1 row = %+v", opp1)
	}
	if opp1.MateName != "tvt_opp2" || opp1.Opp1Name != "tvt_home" || opp1.Opp2Name != "tvt_mate" {
		t.Errorf("opp1 names = %+v", opp1)
	}

	opp2, _ := b.Store.Get(ctx, "tvt_opp2")
	if opp2.HomeKills != 2 || opp2.MateKills != 4 {
		t.Errorf("opp2 row = %+v", opp2)
	}
}

func TestUpdateSkipsDisabledPartners(t *testing.T) {
	channels := map[string]bool{"tvt_solo": true, "tvt_off": false}
	b := testBoard(t, channels)
	ctx := context.Background()

	if err := b.Update(ctx, "tvt_solo", 1, 2, 3, 4, "tvt_off", "", "", 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	row, _ := b.Store.Get(ctx, "tvt_off")
	if row != nil {
		t.Errorf("disabled partner got a row: %+v", row)
	}
}

func TestAnnounceFormat(t *testing.T) {
	channels := map[string]bool{"tvt_ann": true}
	b := testBoard(t, channels)
	ctx := context.Background()

	if err := b.Update(ctx, "tvt_ann", 10, 7, 4, 2, "", "", "", 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	line, err := b.Announce(ctx, "tvt_ann", true)
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if line != "17 - 6 | Up 11" {
		t.Errorf("announce = %q, want 17 - 6 | Up 11", line)
	}

	// The map reset offset shifts the differential, not the raw totals.
	if err := b.Update(ctx, "tvt_ann", 10, 7, 4, 2, "", "", "", 13); err != nil {
		t.Fatalf("update: %v", err)
	}
	line, _ = b.Announce(ctx, "tvt_ann", true)
	if line != "17 - 6 | Down 2" {
		t.Errorf("announce with reset = %q, want 17 - 6 | Down 2", line)
	}

	if err := b.Update(ctx, "tvt_ann", 10, 7, 4, 2, "", "", "", 11); err != nil {
		t.Fatalf("update: %v", err)
	}
	line, _ = b.Announce(ctx, "tvt_ann", true)
	if line != "17 - 6 | Tied" {
		t.Errorf("announce tied = %q", line)
	}
}

func TestAnnounceNice(t *testing.T) {
	channels := map[string]bool{"tvt_nice": true}
	b := testBoard(t, channels)
	ctx := context.Background()

	if err := b.Update(ctx, "tvt_nice", 4, 2, 5, 4, "", "", "", 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	line, _ := b.Announce(ctx, "tvt_nice", true)
	if !strings.HasPrefix(line, "6 - 9 Nice |") {
		t.Errorf("announce = %q, want the 6-9 easter egg", line)
	}
}

func TestAnnounceThrottle(t *testing.T) {
	channels := map[string]bool{"tvt_throttle": true}
	b := testBoard(t, channels)
	b.MinAnnounce = time.Hour
	ctx := context.Background()

	if err := b.Update(ctx, "tvt_throttle", 1, 0, 0, 0, "", "", "", 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	line, err := b.Announce(ctx, "tvt_throttle", false)
	if err != nil || line == "" {
		t.Fatalf("first announce = %q, %v", line, err)
	}
	line, err = b.Announce(ctx, "tvt_throttle", false)
	if err != nil {
		t.Fatalf("second announce: %v", err)
	}
	if line != "" {
		t.Errorf("throttled announce = %q, want empty", line)
	}
	// Force bypasses the throttle.
	line, _ = b.Announce(ctx, "tvt_throttle", true)
	if line == "" {
		t.Error("forced announce should not be throttled")
	}
}

func TestAnnounceUnknownChannel(t *testing.T) {
	b := testBoard(t, map[string]bool{})
	line, err := b.Announce(context.Background(), "tvt_nobody", true)
	if err != nil || line != "" {
		t.Errorf("announce for unknown channel = %q, %v, want silent", line, err)
	}
}
