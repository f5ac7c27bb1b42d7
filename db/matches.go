package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// MatchStore wraps reads/writes of ingested match records. Batch inserts are
// transactional: a tick's worth of new matches for one player lands
// all-or-nothing.
type MatchStore struct{ DB *sql.DB }

// LatestTimestamp returns the newest stored match timestamp for a player,
// or 0 when none exist. This is the poller's high-water mark.
func (s *MatchStore) LatestTimestamp(ctx context.Context, playerID string) (int64, error) {
	var ts sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM matches WHERE player_id=$1`, playerID).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("latest timestamp: %w", err)
	}
	return ts.Int64, nil
}

// InsertBatch stores a set of match records in one transaction. Rows that
// collide on (match_id, player_id) are skipped, keeping ingestion idempotent
// even if the high-water filter let a duplicate through.
func (s *MatchStore) InsertBatch(ctx context.Context, batch []Match) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match batch: %w", err)
	}
	for _, m := range batch {
		mates, err := json.Marshal(m.Teammates)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal teammates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO matches
			(ts, match_id, placement, kills, deaths, gulag_kills, gulag_deaths, streak, game_mode, teammates, player_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (match_id, player_id) DO NOTHING`,
			m.Timestamp, m.MatchID, m.Placement, m.Kills, m.Deaths, m.GulagKills,
			m.GulagDeaths, m.Streak, m.GameMode, mates, m.PlayerID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert match %s: %w", m.MatchID, err)
		}
	}
	return tx.Commit()
}

// PurgeOlderThan deletes a player's matches with timestamps before cutoff
// (epoch seconds) and returns how many rows went away.
func (s *MatchStore) PurgeOlderThan(ctx context.Context, playerID string, cutoff int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM matches WHERE player_id=$1 AND ts < $2`, playerID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge matches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ByPlayer returns a player's matches with timestamp >= since, oldest first.
func (s *MatchStore) ByPlayer(ctx context.Context, playerID string, since int64) ([]Match, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT ts, match_id, placement, kills, deaths,
		gulag_kills, gulag_deaths, streak, game_mode, teammates, player_id
		FROM matches WHERE player_id=$1 AND ts >= $2 ORDER BY ts ASC`, playerID, since)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		var mates []byte
		if err := rows.Scan(&m.Timestamp, &m.MatchID, &m.Placement, &m.Kills, &m.Deaths,
			&m.GulagKills, &m.GulagDeaths, &m.Streak, &m.GameMode, &mates, &m.PlayerID); err != nil {
			return nil, err
		}
		if len(mates) > 0 {
			if err := json.Unmarshal(mates, &m.Teammates); err != nil {
				return nil, fmt.Errorf("unmarshal teammates: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Latest returns the single most recent match for a player, or (nil, nil).
func (s *MatchStore) Latest(ctx context.Context, playerID string) (*Match, error) {
	rows, err := s.ByPlayer(ctx, playerID, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[len(rows)-1], nil
}
