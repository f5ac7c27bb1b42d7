// Package oauth provides generic token refresh scheduling for providers whose
// tokens are persisted in the oauth_tokens table. It performs jittered checks
// and refreshes when expiry falls within a configured window.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"

	trackdb "github.com/zhekler/trackbot/db"
)

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// TwitchRefresh builds a RefreshFunc for the stored Twitch chat token using
// the oauth2 token source against the Twitch endpoint.
func TwitchRefresh(clientID, clientSecret string) RefreshFunc {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     twitch.Endpoint,
	}
	return func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		tok, err := src.Token()
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return tok.AccessToken, tok.RefreshToken, tok.Expiry, "", nil
	}
}

// SeedToken stores a bootstrap refresh token when no row exists yet for the
// provider. An existing row always wins; the env value is only the first rung.
func SeedToken(ctx context.Context, db *sql.DB, provider, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, _, _, ok, err := trackdb.GetOAuthToken(ctx, db, provider)
	if err != nil || ok {
		return err
	}
	// Zero expiry marks the access token as already stale, so the refresher
	// exchanges it on its first cycle.
	return trackdb.UpsertOAuthToken(ctx, db, provider, "", refreshToken, time.Time{}, "")
}

// ChatToken returns the stored unexpired access token formatted for IRC
// ("oauth:" prefixed), falling back to the static token when the row is
// missing, empty, or stale.
func ChatToken(ctx context.Context, db *sql.DB, provider, fallback string) string {
	access, _, exp, ok, err := trackdb.GetOAuthToken(ctx, db, provider)
	if err != nil || !ok || access == "" || !time.Now().Before(exp) {
		return fallback
	}
	return "oauth:" + access
}

// StartRefresher launches a goroutine that periodically checks an oauth token
// row and refreshes it. provider keys the oauth_tokens table; window is how
// much remaining lifetime triggers a refresh.
func StartRefresher(ctx context.Context, db *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	// Randomized initial delay spreads load across instances.
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			jitterRange := int64(interval / 5)
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			_, rt, exp, ok, err := trackdb.GetOAuthToken(ctx, db, provider)
			if err != nil || !ok || rt == "" {
				continue
			}
			if time.Until(exp) > window {
				continue
			}
			// Small pre-refresh jitter to avoid stampedes when several
			// instances see the same expiry.
			pre := time.Duration(rand.Int63n(int64(5 * time.Second)))
			select {
			case <-ctx.Done():
				return
			case <-time.After(pre):
			}
			ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
			newAT, newRT, newExp, newScope, err := fn(ctx2, rt)
			cancel()
			if err != nil {
				slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			if newRT == "" {
				newRT = rt
			}
			if err := trackdb.UpsertOAuthToken(ctx, db, provider, newAT, newRT, newExp, strings.TrimSpace(newScope)); err != nil {
				slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			slog.Info("token refreshed", slog.String("provider", provider))
		}
	}()
}
