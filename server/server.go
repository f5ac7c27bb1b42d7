// Package server exposes the HTTP control surface: health, status, metrics,
// the 2v2 scorekeeper routes, customs tournament routes, stats lookups, and
// single-match ingestion. Correlation IDs are injected into every request
// context for consistent logging.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhekler/trackbot/telemetry"
)

// NewMux returns the HTTP handler with all routes.
func NewMux(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /healthz", h.HandleHealthz)
	mux.HandleFunc("GET /readyz", h.HandleReadyz)
	mux.HandleFunc("GET /status", h.HandleStatus)

	mux.HandleFunc("GET /twovtwo/{channel}/scores", h.HandleTwoVTwoScores)
	mux.HandleFunc("POST /twovtwo/{channel}/update", h.HandleTwoVTwoUpdate)
	mux.HandleFunc("POST /twovtwo/{channel}/reset", h.HandleTwoVTwoReset)
	mux.HandleFunc("POST /twovtwo/{channel}/enable", h.HandleTwoVTwoEnable)
	mux.HandleFunc("POST /twovtwo/{channel}/pause", h.HandleTwoVTwoPause)

	mux.HandleFunc("POST /customs/{channel}/enable", h.HandleCustomsEnable)
	mux.HandleFunc("POST /customs/{channel}/disable", h.HandleCustomsDisable)
	mux.HandleFunc("POST /customs/{channel}/setmaps", h.HandleCustomsSetMaps)
	mux.HandleFunc("POST /customs/{channel}/setplacement", h.HandleCustomsSetPlacement)
	mux.HandleFunc("POST /customs/{channel}/addmap", h.HandleCustomsAddMap)
	mux.HandleFunc("POST /customs/{channel}/removemap", h.HandleCustomsRemoveMap)
	mux.HandleFunc("POST /customs/{channel}/reset", h.HandleCustomsReset)
	mux.HandleFunc("GET /customs/{channel}/mapcount", h.HandleCustomsMapCount)
	mux.HandleFunc("GET /customs/{channel}/score", h.HandleCustomsScore)

	mux.HandleFunc("GET /stats/{channel}", h.HandleStats)
	mux.HandleFunc("POST /matches/{channel}/{matchid}", h.HandleAddMatch)

	// Mutating routes sit behind the admin token when one is configured.
	protected := adminAuth(mux, h.AdminToken)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)
		if telemetry.IsTracingEnabled() {
			var span trace.Span
			ctx, span = telemetry.StartSpan(ctx, "server", r.Method+" "+r.URL.Path,
				attribute.String("http.method", r.Method))
			defer span.End()
		}
		protected.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuth guards mutating methods with a shared token. Without a
// configured token the surface stays open, which is fine for development.
func adminAuth(next http.Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" || r.Method == http.MethodGet || strings.HasPrefix(r.URL.Path, "/healthz") {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("X-Admin-Token") != token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			slog.Warn("admin auth failed", slog.String("path", r.URL.Path), slog.String("remote_addr", r.RemoteAddr))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
