package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ChannelStore wraps all reads/writes of the channels table behind
// intent-revealing operations. Flag names map onto whitelisted columns so no
// caller-supplied string ever reaches the SQL text.
type ChannelStore struct{ DB *sql.DB }

// flagColumns whitelists the feature-flag names accepted by SetFlag.
var flagColumns = map[string]string{
	"roulette":  "roulette",
	"coinflip":  "coinflip",
	"rps":       "rps",
	"vanish":    "vanish",
	"customs":   "customs",
	"matches":   "matches",
	"two_v_two": "two_v_two",
	"duels":     "duels",
	"subs":      "subs",
	"presence":  "presence",
	"paused":    "paused",
	"thruweb":   "thruweb",
}

const channelCols = `channel, display_name, acti_id, uno_id, platform, tz_offset_minutes,
	roulette, coinflip, rps, vanish, customs, matches, two_v_two, duels, subs, presence, paused, thruweb`

func scanChannel(row interface{ Scan(...any) error }) (*Channel, error) {
	c := &Channel{}
	err := row.Scan(&c.Channel, &c.DisplayName, &c.ActiID, &c.UnoID, &c.Platform, &c.TZOffsetMin,
		&c.Roulette, &c.Coinflip, &c.RPS, &c.Vanish, &c.Customs, &c.Matches, &c.TwoVTwo,
		&c.Duels, &c.Subs, &c.Presence, &c.Paused, &c.ThruWeb)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// All returns every channel row, used to populate the registry at boot.
func (s *ChannelStore) All(ctx context.Context) ([]*Channel, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+channelCols+` FROM channels`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()
	var out []*Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns one channel row or (nil, nil) when absent.
func (s *ChannelStore) Get(ctx context.Context, channel string) (*Channel, error) {
	c, err := scanChannel(s.DB.QueryRowContext(ctx,
		`SELECT `+channelCols+` FROM channels WHERE channel=$1`, channel))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// Upsert inserts or replaces a channel row.
func (s *ChannelStore) Upsert(ctx context.Context, c *Channel) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO channels (`+channelCols+`, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW())
		ON CONFLICT(channel) DO UPDATE SET
			display_name=EXCLUDED.display_name, acti_id=EXCLUDED.acti_id, uno_id=EXCLUDED.uno_id,
			platform=EXCLUDED.platform, tz_offset_minutes=EXCLUDED.tz_offset_minutes,
			roulette=EXCLUDED.roulette, coinflip=EXCLUDED.coinflip, rps=EXCLUDED.rps,
			vanish=EXCLUDED.vanish, customs=EXCLUDED.customs, matches=EXCLUDED.matches,
			two_v_two=EXCLUDED.two_v_two, duels=EXCLUDED.duels, subs=EXCLUDED.subs,
			presence=EXCLUDED.presence, paused=EXCLUDED.paused, thruweb=EXCLUDED.thruweb,
			updated_at=NOW()`,
		c.Channel, c.DisplayName, c.ActiID, c.UnoID, c.Platform, c.TZOffsetMin,
		c.Roulette, c.Coinflip, c.RPS, c.Vanish, c.Customs, c.Matches, c.TwoVTwo,
		c.Duels, c.Subs, c.Presence, c.Paused, c.ThruWeb)
	return err
}

// SetFlag persists one boolean feature flag. The flag name must be one of the
// whitelisted columns; anything else is an error, never SQL.
func (s *ChannelStore) SetFlag(ctx context.Context, channel, flag string, value bool) error {
	col, ok := flagColumns[flag]
	if !ok {
		return fmt.Errorf("unknown channel flag %q", flag)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET `+col+`=$1, updated_at=NOW() WHERE channel=$2`, value, channel)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel %q not found", channel)
	}
	return nil
}

// Delete removes a channel row (opt-out).
func (s *ChannelStore) Delete(ctx context.Context, channel string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM channels WHERE channel=$1`, channel)
	return err
}
