// Package customs scores custom-tournament map series: a manually fed
// (placement, kills) list converted to points through a configurable
// placement->multiplier table.
package customs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/stats"
)

// Service owns tournament state access for chat handlers and web routes.
type Service struct {
	Store *db.CustomsStore
}

// Multiplier selects the points multiplier for a placement. The table is a
// whitespace-delimited list of threshold/multiplier pairs; thresholds are
// scanned from the highest downward and the first one the placement still
// reaches wins.
func Multiplier(table string, placement int) float64 {
	fields := strings.Fields(table)
	for i := len(fields)/2 - 1; i >= 0; i-- {
		threshold, err := strconv.Atoi(fields[2*i])
		if err != nil {
			continue
		}
		if placement >= threshold {
			m, err := strconv.ParseFloat(fields[2*i+1], 64)
			if err != nil {
				return 0
			}
			return m
		}
	}
	return 0
}

// AddMap scores one finished map, appends it to the series, and returns the
// announcement line.
func (s *Service) AddMap(ctx context.Context, channel string, placement, kills int) (string, error) {
	st, err := s.Store.Get(ctx, channel)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", fmt.Errorf("no customs state for %s", channel)
	}
	points := float64(kills) * Multiplier(st.Multipliers, placement)
	st.Placements = append(st.Placements, placement)
	st.Kills = append(st.Kills, kills)
	if err := s.Store.SaveMaps(ctx, channel, st.Placements, st.Kills); err != nil {
		return "", err
	}
	return fmt.Sprintf("Team %s got %s place with %d kills for %.2f points!",
		channel, stats.Ordinal(placement), kills, points), nil
}

// RemoveMap pops the last map from the series. Removing from an empty series
// is a no-op, not an error.
func (s *Service) RemoveMap(ctx context.Context, channel string) (string, error) {
	st, err := s.Store.Get(ctx, channel)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", fmt.Errorf("no customs state for %s", channel)
	}
	if n := len(st.Placements); n > 0 {
		st.Placements = st.Placements[:n-1]
	}
	if n := len(st.Kills); n > 0 {
		st.Kills = st.Kills[:n-1]
	}
	if err := s.Store.SaveMaps(ctx, channel, st.Placements, st.Kills); err != nil {
		return "", err
	}
	return "Last map has been removed.", nil
}

// Score recomputes the per-map point series plus running total, with a TBD
// placeholder for the next unplayed map when the series is short of the
// configured count.
func (s *Service) Score(ctx context.Context, channel string) (string, error) {
	st, err := s.Store.Get(ctx, channel)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", fmt.Errorf("no customs state for %s", channel)
	}
	var parts []string
	total := 0.0
	for i, placement := range st.Placements {
		kills := 0
		if i < len(st.Kills) {
			kills = st.Kills[i]
		}
		points := float64(kills) * Multiplier(st.Multipliers, placement)
		parts = append(parts, fmt.Sprintf("Map %d: %.2f", i+1, points))
		total += points
	}
	if len(parts) < st.MapCount {
		parts = append(parts, fmt.Sprintf("Map %d: TBD", len(parts)+1))
	}
	parts = append(parts, fmt.Sprintf("Total: %.2f pts", total))
	return strings.Join(parts, " | "), nil
}

// MapCount reports series progress against the configured map count.
func (s *Service) MapCount(ctx context.Context, channel string) (string, error) {
	st, err := s.Store.Get(ctx, channel)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", fmt.Errorf("no customs state for %s", channel)
	}
	if len(st.Placements) == st.MapCount {
		return "All maps have been played GG", nil
	}
	return fmt.Sprintf("Map %d of %d", len(st.Placements)+1, st.MapCount), nil
}

// Reset clears the series to empty.
func (s *Service) Reset(ctx context.Context, channel string) (string, error) {
	if err := s.Store.SaveMaps(ctx, channel, nil, nil); err != nil {
		return "", err
	}
	return "Maps have been reset.", nil
}

// SetMapCount sets the target number of maps.
func (s *Service) SetMapCount(ctx context.Context, channel string, count int) (string, error) {
	if err := s.Store.SetMapCount(ctx, channel, count); err != nil {
		return "", err
	}
	return fmt.Sprintf("Map count has been set to %d", count), nil
}

// SetMultipliers replaces the placement multiplier table.
func (s *Service) SetMultipliers(ctx context.Context, channel, table string) (string, error) {
	if err := s.Store.SetMultipliers(ctx, channel, table); err != nil {
		return "", err
	}
	return "Placement multipliers have been updated.", nil
}
