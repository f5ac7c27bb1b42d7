// Package poller periodically refreshes match records for every channel with
// match tracking enabled: staggered per-channel fetches, a 7-day retention
// purge, high-water-mark filtering, and teammate enrichment.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zhekler/trackbot/codapi"
	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/stats"
	"github.com/zhekler/trackbot/telemetry"
)

const retention = 7 * 24 * time.Hour

// Tracked is the registry view the poller needs: every channel with match
// tracking on.
type Tracked interface {
	TrackedChannels() []db.Channel
}

// Poller drives the recurring match refresh.
type Poller struct {
	Channels   Tracked
	Matches    *db.MatchStore
	API        *codapi.Client
	Interval   time.Duration
	Stagger    time.Duration
	RetryDelay time.Duration
	Log        *slog.Logger

	now func() time.Time
}

func New(channels Tracked, matches *db.MatchStore, api *codapi.Client, interval, stagger, retryDelay time.Duration) *Poller {
	return &Poller{
		Channels:   channels,
		Matches:    matches,
		API:        api,
		Interval:   interval,
		Stagger:    stagger,
		RetryDelay: retryDelay,
		Log:        slog.Default().With(slog.String("component", "poller")),
		now:        time.Now,
	}
}

// Run ticks immediately, then on the cron schedule, until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.Tick(ctx)
	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", p.Interval), func() { p.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule poller: %w", err)
	}
	c.Start()
	<-ctx.Done()
	c.Stop()
	return nil
}

// Tick refreshes every eligible channel. Each channel runs in its own
// goroutine behind a staggered delay so one slow or failing channel never
// holds up the rest, and the external API never sees a burst.
func (p *Poller) Tick(ctx context.Context) {
	if telemetry.PollCycles != nil {
		telemetry.PollCycles.Inc()
	}
	channels := p.Channels.TrackedChannels()
	if telemetry.TrackedChannelsGauge != nil {
		telemetry.TrackedChannelsGauge.Set(float64(len(channels)))
	}
	if p.Matches != nil && p.Matches.DB != nil {
		if err := db.SetKV(ctx, p.Matches.DB, "poller:last_tick", p.now().UTC().Format(time.RFC3339)); err != nil {
			p.Log.Warn("heartbeat write failed", slog.Any("err", err))
		}
	}
	for i, ch := range channels {
		delay := time.Duration(i) * p.Stagger
		go func(ch db.Channel, delay time.Duration) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if err := p.refreshWithRetry(ctx, ch); err != nil {
				p.Log.Error("channel refresh failed",
					slog.String("channel", ch.Channel), slog.Any("err", err))
			}
		}(ch, delay)
	}
}

// refreshWithRetry retries the refresh exactly once after a fixed delay, then
// gives up until the next tick.
func (p *Poller) refreshWithRetry(ctx context.Context, ch db.Channel) error {
	err := p.refresh(ctx, ch)
	if err == nil {
		return nil
	}
	if telemetry.APIFailures != nil {
		telemetry.APIFailures.Inc()
	}
	p.Log.Warn("refresh failed, retrying",
		slog.String("channel", ch.Channel), slog.Any("err", err))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.RetryDelay):
	}
	if telemetry.APIRetries != nil {
		telemetry.APIRetries.Inc()
	}
	if err := p.refresh(ctx, ch); err != nil {
		if telemetry.APIFailures != nil {
			telemetry.APIFailures.Inc()
		}
		return err
	}
	return nil
}

func (p *Poller) refresh(ctx context.Context, ch db.Channel) error {
	if ch.ActiID == "" {
		return nil
	}
	ctx, span := telemetry.StartSpan(ctx, "poller", "refresh",
		attribute.String("channel", ch.Channel))
	defer span.End()

	if err := p.sync(ctx, ch); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (p *Poller) sync(ctx context.Context, ch db.Channel) error {
	playerID := ch.ActiID

	purged, err := p.Matches.PurgeOlderThan(ctx, playerID, p.now().Add(-retention).Unix())
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	if purged > 0 && telemetry.MatchesPurged != nil {
		telemetry.MatchesPurged.Add(float64(purged))
	}

	highWater, err := p.Matches.LatestTimestamp(ctx, playerID)
	if err != nil {
		return fmt.Errorf("high water: %w", err)
	}

	summaries, err := p.API.RecentMatches(ctx, playerID, ch.Platform)
	if err != nil {
		return fmt.Errorf("fetch matches: %w", err)
	}

	fresh := FilterNew(summaries, highWater)
	if len(fresh) == 0 {
		return nil
	}

	batch := make([]db.Match, 0, len(fresh))
	for _, s := range fresh {
		m := Normalize(s, playerID)
		// A failed detail call costs the teammates, not the match.
		if players, err := p.API.MatchDetail(ctx, s.MatchID); err == nil {
			m.Teammates = codapi.Teammates(players, ch.UnoID, 3)
		} else {
			p.Log.Warn("match detail failed",
				slog.String("match", s.MatchID), slog.Any("err", err))
		}
		batch = append(batch, m)
	}

	if err := p.Matches.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	if telemetry.MatchesIngested != nil {
		telemetry.MatchesIngested.Add(float64(len(batch)))
	}
	p.Log.Info("matches ingested",
		slog.String("channel", ch.Channel), slog.Int("count", len(batch)))
	return nil
}

// FilterNew keeps only summaries strictly newer than the stored high-water
// timestamp, which makes re-fetching the same window idempotent.
func FilterNew(summaries []codapi.MatchSummary, highWater int64) []codapi.MatchSummary {
	var out []codapi.MatchSummary
	for _, s := range summaries {
		if s.UTCStartSeconds > highWater {
			out = append(out, s)
		}
	}
	return out
}

// Normalize converts an API summary into a stored match record: ordinal
// placement, readable mode label, and gulag counts zeroed for modes without
// the mechanic.
func Normalize(s codapi.MatchSummary, playerID string) db.Match {
	mode := codapi.ModeLabel(s.Mode)
	m := db.Match{
		Timestamp: s.UTCStartSeconds,
		MatchID:   s.MatchID,
		Placement: stats.FormatPlacement(s.PlayerStats.TeamPlacement),
		Kills:     s.PlayerStats.Kills,
		Deaths:    s.PlayerStats.Deaths,
		Streak:    s.PlayerStats.LongestStreak,
		GameMode:  mode,
		PlayerID:  playerID,
	}
	if codapi.GulagApplies(mode) {
		if s.PlayerStats.GulagKills > 0 {
			m.GulagKills = 1
		} else if s.PlayerStats.GulagDeaths > 0 {
			m.GulagDeaths = 1
		}
	}
	return m
}
