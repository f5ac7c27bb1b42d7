package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DuelStore wraps cumulative duel win/loss tallies. Pending challenges are
// process-local state owned by the duel manager; only resolved outcomes land
// here.
type DuelStore struct{ DB *sql.DB }

// Record returns a user's tally in a channel, zero-valued when absent.
func (s *DuelStore) Record(ctx context.Context, channel, userID string) (*DuelRecord, error) {
	r := &DuelRecord{Channel: channel, UserID: userID}
	err := s.DB.QueryRowContext(ctx,
		`SELECT wins, losses FROM duel_records WHERE channel=$1 AND user_id=$2`,
		channel, userID).Scan(&r.Wins, &r.Losses)
	if err == sql.ErrNoRows {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get duel record: %w", err)
	}
	return r, nil
}

// RecordOutcome increments the winner's wins and the loser's losses in one
// transaction so a crash can't credit only half of a duel.
func (s *DuelStore) RecordOutcome(ctx context.Context, channel, winner, loser string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin duel outcome: %w", err)
	}
	upsert := `INSERT INTO duel_records (channel, user_id, wins, losses) VALUES ($1,$2,$3,$4)
		ON CONFLICT(channel, user_id) DO UPDATE SET
			wins=duel_records.wins+EXCLUDED.wins, losses=duel_records.losses+EXCLUDED.losses`
	if _, err := tx.ExecContext(ctx, upsert, channel, winner, 1, 0); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("credit winner: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, channel, loser, 0, 1); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("debit loser: %w", err)
	}
	return tx.Commit()
}
