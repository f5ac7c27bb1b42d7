package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertOAuthToken stores or replaces a provider token set.
func UpsertOAuthToken(ctx context.Context, dbx *sql.DB, provider, access, refresh string, expiresAt time.Time, scope string) error {
	_, err := dbx.ExecContext(ctx, `INSERT INTO oauth_tokens
		(provider, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT(provider) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			scope=EXCLUDED.scope,
			updated_at=NOW()`,
		provider, access, refresh, expiresAt, scope)
	if err != nil {
		return fmt.Errorf("upsert oauth token: %w", err)
	}
	return nil
}

// GetOAuthToken loads a provider token set. Returns ok=false when no token
// has been stored yet.
func GetOAuthToken(ctx context.Context, dbx *sql.DB, provider string) (access, refresh string, expiresAt time.Time, ok bool, err error) {
	var exp sql.NullTime
	err = dbx.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at FROM oauth_tokens WHERE provider=$1`,
		provider).Scan(&access, &refresh, &exp)
	if err == sql.ErrNoRows {
		return "", "", time.Time{}, false, nil
	}
	if err != nil {
		return "", "", time.Time{}, false, fmt.Errorf("get oauth token: %w", err)
	}
	return access, refresh, exp.Time, true, nil
}
