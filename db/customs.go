package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// CustomsStore wraps the customs table. The map series is stored as a small
// JSON document of parallel placement/kill arrays, matching how the web
// overlay consumes it.
type CustomsStore struct{ DB *sql.DB }

type customsMaps struct {
	Placement []int `json:"placement"`
	Kills     []int `json:"kills"`
}

// Get returns a channel's customs state or (nil, nil) when absent.
func (s *CustomsStore) Get(ctx context.Context, channel string) (*CustomsState, error) {
	st := &CustomsState{}
	var maps []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT channel, maps, map_count, multipliers FROM customs WHERE channel=$1`, channel).
		Scan(&st.Channel, &maps, &st.MapCount, &st.Multipliers)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customs: %w", err)
	}
	var m customsMaps
	if err := json.Unmarshal(maps, &m); err != nil {
		return nil, fmt.Errorf("unmarshal customs maps: %w", err)
	}
	st.Placements, st.Kills = m.Placement, m.Kills
	return st, nil
}

// Ensure creates an empty customs row for a channel if one does not exist.
func (s *CustomsStore) Ensure(ctx context.Context, channel string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO customs (channel) VALUES ($1) ON CONFLICT(channel) DO NOTHING`, channel)
	return err
}

// SaveMaps persists the placement/kill series for a channel.
func (s *CustomsStore) SaveMaps(ctx context.Context, channel string, placements, kills []int) error {
	if placements == nil {
		placements = []int{}
	}
	if kills == nil {
		kills = []int{}
	}
	doc, err := json.Marshal(customsMaps{Placement: placements, Kills: kills})
	if err != nil {
		return fmt.Errorf("marshal customs maps: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE customs SET maps=$1 WHERE channel=$2`, doc, channel)
	return err
}

// SetMapCount sets the target number of maps in the series.
func (s *CustomsStore) SetMapCount(ctx context.Context, channel string, count int) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE customs SET map_count=$1 WHERE channel=$2`, count, channel)
	return err
}

// SetMultipliers replaces the placement->multiplier table (whitespace-delimited pairs).
func (s *CustomsStore) SetMultipliers(ctx context.Context, channel, table string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE customs SET multipliers=$1 WHERE channel=$2`, table, channel)
	return err
}
