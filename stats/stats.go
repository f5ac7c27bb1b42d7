package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zhekler/trackbot/db"
)

// Service answers the stat lookup commands from the stored match window.
// Retention keeps roughly a week of matches per player, so "weekly" queries
// are simply the full stored set.
type Service struct {
	Matches *db.MatchStore
}

// LastGame summarizes a player's most recent match.
func (s *Service) LastGame(ctx context.Context, playerID string) (string, error) {
	m, err := s.Matches.Latest(ctx, playerID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "No matches found.", nil
	}
	gulag := "-"
	if m.GulagKills > 0 {
		gulag = "Won"
	} else if m.GulagDeaths > 0 {
		gulag = "Lost"
	}
	mates := "-"
	if len(m.Teammates) > 0 {
		parts := make([]string, 0, len(m.Teammates))
		for _, t := range m.Teammates {
			parts = append(parts, fmt.Sprintf("%s (%dK, %dD)", t.Name, t.Kills, t.Deaths))
		}
		mates = strings.Join(parts, " | ")
	}
	return fmt.Sprintf("%s | %s place | %s (%dK, %dD) | Gulag: %s | Teammates: %s",
		m.GameMode, m.Placement, PlayerName(playerID), m.Kills, m.Deaths, gulag, mates), nil
}

// Weekly summarizes all stored matches for a player.
func (s *Service) Weekly(ctx context.Context, playerID string) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, 0)
	if err != nil {
		return "", err
	}
	a := aggregate(matches)
	return fmt.Sprintf("Weekly Stats | %d Games | Kills/Game: %s | Deaths/Game: %s | K/D: %s | Wins: %d | Longest Kill Streak: %d | Gulag: %s",
		a.games, ratio(a.kills, a.games), ratio(a.deaths, a.games), ratio(a.kills, a.deaths),
		a.wins, a.streak, a.gulagLine()), nil
}

// Daily summarizes matches since local midnight in the channel's zone,
// expressed as a signed minutes offset from UTC.
func (s *Service) Daily(ctx context.Context, playerID string, tzOffsetMin int) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, Midnight(time.Now(), tzOffsetMin))
	if err != nil {
		return "", err
	}
	a := aggregate(matches)
	return fmt.Sprintf("Daily Stats | Games: %d | Kills/Game: %s | Deaths/Game: %s | K/D: %s | Wins: %d | Longest Kill Streak: %d | Gulag: %s",
		a.games, ratio(a.kills, a.games), ratio(a.deaths, a.games), ratio(a.kills, a.deaths),
		a.wins, a.streak, a.gulagLine()), nil
}

// Bombs lists today's 30+ kill games.
func (s *Service) Bombs(ctx context.Context, playerID string, tzOffsetMin int) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, Midnight(time.Now(), tzOffsetMin))
	if err != nil {
		return "", err
	}
	var bombs []string
	for _, m := range matches {
		if m.Kills >= 30 {
			bombs = append(bombs, fmt.Sprintf("%dK", m.Kills))
		}
	}
	line := fmt.Sprintf("%s has dropped %d %s (30+ kill games) today",
		PlayerName(playerID), len(bombs), plural(len(bombs), "bomb", "bombs"))
	if len(bombs) > 0 {
		line += " (" + strings.Join(bombs, ", ") + ")"
	}
	return line, nil
}

// Wins lists today's first-place finishes.
func (s *Service) Wins(ctx context.Context, playerID string, tzOffsetMin int) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, Midnight(time.Now(), tzOffsetMin))
	if err != nil {
		return "", err
	}
	var wins []string
	for _, m := range matches {
		if m.Placement == "1st" {
			wins = append(wins, fmt.Sprintf("%dK", m.Kills))
		}
	}
	line := fmt.Sprintf("%s has won %d %s today",
		PlayerName(playerID), len(wins), plural(len(wins), "game", "games"))
	if len(wins) > 0 {
		line += " (" + strings.Join(wins, ", ") + ")"
	}
	return line, nil
}

// Gulag summarizes today's gulag record.
func (s *Service) Gulag(ctx context.Context, playerID string, tzOffsetMin int) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, Midnight(time.Now(), tzOffsetMin))
	if err != nil {
		return "", err
	}
	var won, lost int
	for _, m := range matches {
		if m.GulagKills > 0 {
			won++
		} else if m.GulagDeaths > 0 {
			lost++
		}
	}
	return fmt.Sprintf("%s has %d %s and %d %s in the gulag today.",
		PlayerName(playerID), won, plural(won, "win", "wins"), lost, plural(lost, "loss", "losses")), nil
}

// Teammates lists the five most frequent squadmates across the stored window.
func (s *Service) Teammates(ctx context.Context, playerID string) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, 0)
	if err != nil {
		return "", err
	}
	counts := map[string]int{}
	for _, m := range matches {
		for _, t := range m.Teammates {
			counts[t.Name]++
		}
	}
	return "Weekly Teammates | " + topFive(counts), nil
}

// GameModes lists the five most played modes across the stored window.
func (s *Service) GameModes(ctx context.Context, playerID string) (string, error) {
	matches, err := s.Matches.ByPlayer(ctx, playerID, 0)
	if err != nil {
		return "", err
	}
	counts := map[string]int{}
	for _, m := range matches {
		counts[m.GameMode]++
	}
	return "Weekly Game Modes | " + topFive(counts), nil
}

// Midnight returns the epoch second of local midnight for a zone given as a
// signed minutes offset from UTC.
func Midnight(now time.Time, tzOffsetMin int) int64 {
	loc := time.FixedZone("channel", tzOffsetMin*60)
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).Unix()
}

// LifetimeSummary is the formatted view of an account's lifetime stats as
// returned by the match API.
type LifetimeSummary struct {
	Username   string
	HoursPlay  float64
	LifetimeKD float64
	WeeklyKD   float64
	HasWeekly  bool
	Wins       int
	Kills      int
}

func (l LifetimeSummary) String() string {
	weekly := "-"
	if l.HasWeekly {
		weekly = fmt.Sprintf("%.2f", l.WeeklyKD)
	}
	return fmt.Sprintf("%s | Time Played: %.2f Hours | Lifetime KD: %.2f | Weekly KD: %s | Total Wins: %d | Total Kills: %d",
		l.Username, l.HoursPlay, l.LifetimeKD, weekly, l.Wins, l.Kills)
}

type tally struct {
	games, kills, deaths, wins, streak int
	gulagKills, gulagDeaths            int
}

func aggregate(matches []db.Match) tally {
	var a tally
	a.games = len(matches)
	for _, m := range matches {
		a.kills += m.Kills
		a.deaths += m.Deaths
		if m.Placement == "1st" {
			a.wins++
		}
		if m.Streak > a.streak {
			a.streak = m.Streak
		}
		a.gulagKills += m.GulagKills
		a.gulagDeaths += m.GulagDeaths
	}
	return a
}

func (a tally) gulagLine() string {
	if a.games == 0 {
		return "-"
	}
	return fmt.Sprintf("%d / %d", a.gulagKills, a.gulagDeaths)
}

func topFive(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > 5 {
		names = names[:5]
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %d games", n, counts[n]))
	}
	return strings.Join(parts, " | ")
}
