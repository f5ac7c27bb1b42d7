// Package twovtwo implements the linked 2v2 score tracker: one home channel
// plus a teammate and two opponents, each seeing themselves as "home" in
// their own row, with a periodic score announcer per participating channel.
package twovtwo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zhekler/trackbot/db"
)

// Scoreboard wraps rotated updates and announcement formatting of the
// twovtwo rows.
type Scoreboard struct {
	Store *db.TwoVTwoStore
	// Enabled reports whether a channel participates in 2v2; partner rows
	// are only propagated to enabled channels.
	Enabled func(channel string) bool
	// MinAnnounce suppresses repeat announcements closer together than this
	// unless forced.
	MinAnnounce time.Duration
}

// Update persists the channel's own counters plus rotated views for every
// enabled partner in one transaction, so linked rows never diverge.
func (b *Scoreboard) Update(ctx context.Context, channel string, home, mate, opp1, opp2 int, mateName, opp1Name, opp2Name string, mapReset int) error {
	rows := []db.TwoVTwoRow{{
		Channel:   channel,
		HomeKills: home, MateKills: mate, Opp1Kills: opp1, Opp2Kills: opp2,
		MateName: mateName, Opp1Name: opp1Name, Opp2Name: opp2Name,
		MapReset: mapReset,
	}}
	if b.enabled(mateName) {
		rows = append(rows, db.TwoVTwoRow{
			Channel:   mateName,
			HomeKills: mate, MateKills: home, Opp1Kills: opp1, Opp2Kills: opp2,
			MateName: channel, Opp1Name: opp1Name, Opp2Name: opp2Name,
			MapReset: mapReset,
		})
	}
	if b.enabled(opp1Name) {
		rows = append(rows, db.TwoVTwoRow{
			Channel:   opp1Name,
			HomeKills: opp1, MateKills: opp2, Opp1Kills: home, Opp2Kills: mate,
			MateName: opp2Name, Opp1Name: channel, Opp2Name: mateName,
			MapReset: mapReset,
		})
	}
	if b.enabled(opp2Name) {
		rows = append(rows, db.TwoVTwoRow{
			Channel:   opp2Name,
			HomeKills: opp2, MateKills: opp1, Opp1Kills: home, Opp2Kills: mate,
			MateName: opp1Name, Opp1Name: channel, Opp2Name: mateName,
			MapReset: mapReset,
		})
	}
	return b.Store.UpsertAll(ctx, rows)
}

func (b *Scoreboard) enabled(channel string) bool {
	return channel != "" && b.Enabled != nil && b.Enabled(channel)
}

// Reset zeroes the channel's counters.
func (b *Scoreboard) Reset(ctx context.Context, channel string) error {
	return b.Store.Reset(ctx, channel)
}

// Announce formats the score line for a channel. Without force, repeats
// inside the minimum interval return "" so callers stay quiet. The manual
// map-reset offset shifts the differential, not the raw totals.
func (b *Scoreboard) Announce(ctx context.Context, channel string, force bool) (string, error) {
	row, err := b.Store.Get(ctx, channel)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", nil
	}
	now := time.Now()
	if !force && b.MinAnnounce > 0 && now.Sub(row.LastAnnounce) < b.MinAnnounce {
		return "", nil
	}
	if err := b.Store.TouchAnnounce(ctx, channel, now); err != nil {
		return "", err
	}
	us := row.HomeKills + row.MateKills
	them := row.Opp1Kills + row.Opp2Kills
	diff := us - them - row.MapReset
	var tail string
	switch {
	case diff > 0:
		tail = fmt.Sprintf("Up %d", diff)
	case diff < 0:
		tail = fmt.Sprintf("Down %d", -diff)
	default:
		tail = "Tied"
	}
	nice := ""
	if us == 6 && them == 9 {
		nice = " Nice"
	}
	return fmt.Sprintf("%d - %d%s | %s", us, them, nice, tail), nil
}

// Announcer re-announces the score on an interval for every active,
// unpaused channel.
type Announcer struct {
	Board    *Scoreboard
	Say      func(channel, text string)
	Interval time.Duration

	mu     sync.Mutex
	active map[string]bool
	paused map[string]bool
}

func NewAnnouncer(board *Scoreboard, say func(channel, text string)) *Announcer {
	return &Announcer{
		Board:    board,
		Say:      say,
		Interval: 30 * time.Second,
		active:   make(map[string]bool),
		paused:   make(map[string]bool),
	}
}

// Enable starts periodic announcements for a channel.
func (a *Announcer) Enable(channel string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active[channel] = true
	delete(a.paused, channel)
}

// Disable stops announcements; scoreboard state is retained.
func (a *Announcer) Disable(channel string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, channel)
	delete(a.paused, channel)
}

// Pause suspends announcements without losing the active mark.
func (a *Announcer) Pause(channel string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active[channel] {
		a.paused[channel] = true
	}
}

// Resume lifts a pause.
func (a *Announcer) Resume(channel string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.paused, channel)
}

// Active reports whether the channel currently announces.
func (a *Announcer) Active(channel string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active[channel] && !a.paused[channel]
}

func (a *Announcer) announceTargets() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.active))
	for channel := range a.active {
		if !a.paused[channel] {
			out = append(out, channel)
		}
	}
	return out
}

// Run announces on the interval until ctx is done. Failures are logged and
// never stop the loop.
func (a *Announcer) Run(ctx context.Context) {
	log := slog.Default().With(slog.String("component", "twovtwo"))
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, channel := range a.announceTargets() {
				line, err := a.Board.Announce(ctx, channel, false)
				if err != nil {
					log.Error("announce failed", slog.String("channel", channel), slog.Any("err", err))
					continue
				}
				if line != "" {
					a.Say(channel, line)
				}
			}
		}
	}
}
