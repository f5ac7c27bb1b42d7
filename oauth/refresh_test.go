package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/testutil"
)

func TestSeedTokenAndChatToken(t *testing.T) {
	conn := testutil.PG(t)
	ctx := context.Background()
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM oauth_tokens WHERE provider='oauthtest'`)
	})

	// No row and no env token: fallback is used and nothing is written.
	if got := ChatToken(ctx, conn, "oauthtest", "oauth:static"); got != "oauth:static" {
		t.Errorf("ChatToken without row = %q, want fallback", got)
	}
	if err := SeedToken(ctx, conn, "oauthtest", ""); err != nil {
		t.Fatalf("seed empty: %v", err)
	}
	if _, _, _, ok, err := db.GetOAuthToken(ctx, conn, "oauthtest"); err != nil || ok {
		t.Fatalf("empty seed wrote a row (ok=%v err=%v)", ok, err)
	}

	// First seed lands with a stale expiry so the refresher picks it up.
	if err := SeedToken(ctx, conn, "oauthtest", "boot-refresh"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, rt, exp, ok, err := db.GetOAuthToken(ctx, conn, "oauthtest")
	if err != nil || !ok || rt != "boot-refresh" {
		t.Fatalf("seeded row = (%q, ok=%v, err=%v), want boot-refresh", rt, ok, err)
	}
	if time.Now().Before(exp) {
		t.Errorf("seeded expiry %v should be in the past", exp)
	}
	// The stale seeded access token never reaches chat.
	if got := ChatToken(ctx, conn, "oauthtest", "oauth:static"); got != "oauth:static" {
		t.Errorf("ChatToken with stale row = %q, want fallback", got)
	}

	// Re-seeding never clobbers a refreshed row.
	fresh := time.Now().Add(time.Hour)
	if err := db.UpsertOAuthToken(ctx, conn, "oauthtest", "live-access", "live-refresh", fresh, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := SeedToken(ctx, conn, "oauthtest", "boot-refresh"); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	_, rt, _, _, err = db.GetOAuthToken(ctx, conn, "oauthtest")
	if err != nil || rt != "live-refresh" {
		t.Fatalf("re-seed overwrote row: rt=%q err=%v", rt, err)
	}
	if got := ChatToken(ctx, conn, "oauthtest", "oauth:static"); got != "oauth:live-access" {
		t.Errorf("ChatToken with live row = %q, want oauth:live-access", got)
	}
}
