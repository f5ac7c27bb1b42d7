// Package telemetry provides Prometheus metrics, correlation-id aware logging
// helpers, and OpenTelemetry tracing setup.
package telemetry

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsDispatched prometheus.Counter
	CommandsDropped    *prometheus.CounterVec
	PollCycles         prometheus.Counter
	MatchesIngested    prometheus.Counter
	APIFailures        prometheus.Counter
	APIRetries         prometheus.Counter
	MatchesPurged      prometheus.Counter

	// Gauges
	TrackedChannelsGauge prometheus.Gauge
	JoinedChannelsGauge  prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsDispatched = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_dispatched_total", Help: "Number of chat commands executed"})
		CommandsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_dropped_total", Help: "Number of chat commands silently dropped"}, []string{"reason"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_poll_cycles_total", Help: "Number of match poller cycles"})
		MatchesIngested = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_matches_ingested_total", Help: "Number of match records ingested"})
		APIFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_match_api_failures_total", Help: "Number of failed match API calls"})
		APIRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_match_api_retries_total", Help: "Number of match API retries"})
		MatchesPurged = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_matches_purged_total", Help: "Number of match records removed by retention"})
		TrackedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_tracked_channels", Help: "Channels with match tracking enabled"})
		JoinedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_joined_channels", Help: "Channels the bot is joined to"})
	})
}

// DropCommand counts one silently dropped command, if metrics are up.
func DropCommand(reason string) {
	if CommandsDropped != nil {
		CommandsDropped.WithLabelValues(reason).Inc()
	}
}

// CountDispatch counts one executed command.
func CountDispatch() {
	if CommandsDispatched != nil {
		CommandsDispatched.Inc()
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}
