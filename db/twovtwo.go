package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TwoVTwoStore wraps the twovtwo table. The rotated multi-row update is the
// one place this package exposes a transaction-shaped operation, because the
// four linked rows must land together.
type TwoVTwoStore struct{ DB *sql.DB }

// Get returns a channel's scoreboard row or (nil, nil) when absent.
func (s *TwoVTwoStore) Get(ctx context.Context, channel string) (*TwoVTwoRow, error) {
	r := &TwoVTwoRow{}
	var last sql.NullTime
	err := s.DB.QueryRowContext(ctx, `SELECT channel, hkills, tkills, o1kills, o2kills,
		tname, o1name, o2name, map_reset, last_announce FROM twovtwo WHERE channel=$1`, channel).
		Scan(&r.Channel, &r.HomeKills, &r.MateKills, &r.Opp1Kills, &r.Opp2Kills,
			&r.MateName, &r.Opp1Name, &r.Opp2Name, &r.MapReset, &last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get twovtwo: %w", err)
	}
	r.LastAnnounce = last.Time
	return r, nil
}

// Reset zeroes a channel's counters, creating the row if needed.
func (s *TwoVTwoStore) Reset(ctx context.Context, channel string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO twovtwo (channel) VALUES ($1)
		ON CONFLICT(channel) DO UPDATE SET hkills=0, tkills=0, o1kills=0, o2kills=0, map_reset=0`,
		channel)
	return err
}

// UpsertAll writes every supplied row in one transaction. Callers pass the
// home row plus the rotated partner views so linked scoreboards never diverge.
func (s *TwoVTwoStore) UpsertAll(ctx context.Context, rows []TwoVTwoRow) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin twovtwo update: %w", err)
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO twovtwo
			(channel, hkills, tkills, o1kills, o2kills, tname, o1name, o2name, map_reset)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT(channel) DO UPDATE SET
				hkills=EXCLUDED.hkills, tkills=EXCLUDED.tkills,
				o1kills=EXCLUDED.o1kills, o2kills=EXCLUDED.o2kills,
				tname=EXCLUDED.tname, o1name=EXCLUDED.o1name, o2name=EXCLUDED.o2name,
				map_reset=EXCLUDED.map_reset`,
			r.Channel, r.HomeKills, r.MateKills, r.Opp1Kills, r.Opp2Kills,
			r.MateName, r.Opp1Name, r.Opp2Name, r.MapReset); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert twovtwo %s: %w", r.Channel, err)
		}
	}
	return tx.Commit()
}

// TouchAnnounce records when a channel's score was last broadcast.
func (s *TwoVTwoStore) TouchAnnounce(ctx context.Context, channel string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE twovtwo SET last_announce=$1 WHERE channel=$2`, at, channel)
	return err
}
