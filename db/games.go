package db

import (
	"context"
	"database/sql"
	"fmt"
)

// GameStore wraps the mini-game score tables (roulette, coinflip,
// rock-paper-scissors, bigvanish). All records are per (channel, user).
type GameStore struct{ DB *sql.DB }

// RouletteRecord returns (survive, die, played).
func (s *GameStore) RouletteRecord(ctx context.Context, channel, userID string) (int, int, bool, error) {
	var survive, die int
	err := s.DB.QueryRowContext(ctx,
		`SELECT survive, die FROM roulette WHERE channel=$1 AND user_id=$2`,
		channel, userID).Scan(&survive, &die)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("roulette record: %w", err)
	}
	return survive, die, true, nil
}

// BumpRoulette records one roulette outcome and returns the updated tallies.
func (s *GameStore) BumpRoulette(ctx context.Context, channel, userID string, survived bool) (int, int, error) {
	var sv, dv = 0, 1
	if survived {
		sv, dv = 1, 0
	}
	var survive, die int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO roulette (channel, user_id, survive, die)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT(channel, user_id) DO UPDATE SET
			survive=roulette.survive+EXCLUDED.survive, die=roulette.die+EXCLUDED.die
		RETURNING survive, die`,
		channel, userID, sv, dv).Scan(&survive, &die)
	if err != nil {
		return 0, 0, fmt.Errorf("bump roulette: %w", err)
	}
	return survive, die, nil
}

// RouletteLeaders returns the top n rows ordered by the given whitelisted
// ranking ("survive" or "die").
func (s *GameStore) RouletteLeaders(ctx context.Context, channel, rank string, n int) ([]LeaderRow, error) {
	switch rank {
	case "survive", "die":
	default:
		return nil, fmt.Errorf("unknown roulette ranking %q", rank)
	}
	return s.leaders(ctx, `SELECT user_id, `+rank+` FROM roulette
		WHERE channel=$1 ORDER BY `+rank+` DESC LIMIT $2`, channel, n)
}

// CoinflipLeaders returns the top n rows by correct guesses.
func (s *GameStore) CoinflipLeaders(ctx context.Context, channel string, n int) ([]LeaderRow, error) {
	return s.leaders(ctx, `SELECT user_id, correct FROM coinflip
		WHERE channel=$1 ORDER BY correct DESC LIMIT $2`, channel, n)
}

// RouletteTotals returns the top n rows by total roulette plays.
func (s *GameStore) RouletteTotals(ctx context.Context, channel string, n int) ([]LeaderRow, error) {
	return s.leaders(ctx, `SELECT user_id, survive+die FROM roulette
		WHERE channel=$1 ORDER BY survive+die DESC LIMIT $2`, channel, n)
}

// RPSLeaders returns the top n rows by rock-paper-scissors wins.
func (s *GameStore) RPSLeaders(ctx context.Context, channel string, n int) ([]LeaderRow, error) {
	return s.leaders(ctx, `SELECT user_id, wins FROM rockpaperscissors
		WHERE channel=$1 ORDER BY wins DESC LIMIT $2`, channel, n)
}

func (s *GameStore) leaders(ctx context.Context, query, channel string, n int) ([]LeaderRow, error) {
	rows, err := s.DB.QueryContext(ctx, query, channel, n)
	if err != nil {
		return nil, fmt.Errorf("game leaders: %w", err)
	}
	defer rows.Close()
	var out []LeaderRow
	for rows.Next() {
		var r LeaderRow
		if err := rows.Scan(&r.UserID, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BumpCoinflip records one coinflip guess and returns (correct, wrong).
func (s *GameStore) BumpCoinflip(ctx context.Context, channel, userID string, won bool) (int, int, error) {
	var cv, wv = 0, 1
	if won {
		cv, wv = 1, 0
	}
	var correct, wrong int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO coinflip (channel, user_id, correct, wrong)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT(channel, user_id) DO UPDATE SET
			correct=coinflip.correct+EXCLUDED.correct, wrong=coinflip.wrong+EXCLUDED.wrong
		RETURNING correct, wrong`,
		channel, userID, cv, wv).Scan(&correct, &wrong)
	if err != nil {
		return 0, 0, fmt.Errorf("bump coinflip: %w", err)
	}
	return correct, wrong, nil
}

// CoinflipRecord returns (correct, wrong, played).
func (s *GameStore) CoinflipRecord(ctx context.Context, channel, userID string) (int, int, bool, error) {
	var correct, wrong int
	err := s.DB.QueryRowContext(ctx,
		`SELECT correct, wrong FROM coinflip WHERE channel=$1 AND user_id=$2`,
		channel, userID).Scan(&correct, &wrong)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("coinflip record: %w", err)
	}
	return correct, wrong, true, nil
}

// BumpRPS records a rock-paper-scissors result (-1 loss, 0 tie, 1 win) and
// returns the updated (wins, losses, ties).
func (s *GameStore) BumpRPS(ctx context.Context, channel, userID string, result int) (int, int, int, error) {
	var wv, lv, tv int
	switch {
	case result > 0:
		wv = 1
	case result < 0:
		lv = 1
	default:
		tv = 1
	}
	var wins, losses, ties int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO rockpaperscissors (channel, user_id, wins, losses, ties)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT(channel, user_id) DO UPDATE SET
			wins=rockpaperscissors.wins+EXCLUDED.wins,
			losses=rockpaperscissors.losses+EXCLUDED.losses,
			ties=rockpaperscissors.ties+EXCLUDED.ties
		RETURNING wins, losses, ties`,
		channel, userID, wv, lv, tv).Scan(&wins, &losses, &ties)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bump rps: %w", err)
	}
	return wins, losses, ties, nil
}

// RPSRecord returns (wins, losses, ties, played).
func (s *GameStore) RPSRecord(ctx context.Context, channel, userID string) (int, int, int, bool, error) {
	var wins, losses, ties int
	err := s.DB.QueryRowContext(ctx,
		`SELECT wins, losses, ties FROM rockpaperscissors WHERE channel=$1 AND user_id=$2`,
		channel, userID).Scan(&wins, &losses, &ties)
	if err == sql.ErrNoRows {
		return 0, 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("rps record: %w", err)
	}
	return wins, losses, ties, true, nil
}

// BumpVanish records a vanish roll, keeping per-user high/low extremes, and
// returns the updated (highest, lowest).
func (s *GameStore) BumpVanish(ctx context.Context, channel, userID string, seconds int) (int, int, error) {
	var highest, lowest int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO bigvanish (channel, user_id, highest, lowest)
		VALUES ($1,$2,$3,$3)
		ON CONFLICT(channel, user_id) DO UPDATE SET
			highest=GREATEST(bigvanish.highest, EXCLUDED.highest),
			lowest=LEAST(bigvanish.lowest, EXCLUDED.lowest)
		RETURNING highest, lowest`,
		channel, userID, seconds).Scan(&highest, &lowest)
	if err != nil {
		return 0, 0, fmt.Errorf("bump vanish: %w", err)
	}
	return highest, lowest, nil
}

// VanishLeaders returns the top n rows by highest (desc=true) or lowest roll.
func (s *GameStore) VanishLeaders(ctx context.Context, channel string, desc bool, n int) ([]LeaderRow, error) {
	order := "lowest ASC"
	col := "lowest"
	if desc {
		order = "highest DESC"
		col = "highest"
	}
	return s.leaders(ctx, `SELECT user_id, `+col+` FROM bigvanish
		WHERE channel=$1 ORDER BY `+order+` LIMIT $2`, channel, n)
}
