// Command trackbot is the chat bot and companion web service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Joins every registered chat channel and dispatches commands.
//   - Polls the match-data API for tracked players on a staggered schedule.
//   - Exposes an HTTP surface for health, metrics, 2v2 scores, customs
//     tournaments, and stat lookups.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhekler/trackbot/bot"
	"github.com/zhekler/trackbot/codapi"
	"github.com/zhekler/trackbot/config"
	"github.com/zhekler/trackbot/customs"
	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/duel"
	"github.com/zhekler/trackbot/games"
	"github.com/zhekler/trackbot/oauth"
	"github.com/zhekler/trackbot/poller"
	"github.com/zhekler/trackbot/server"
	"github.com/zhekler/trackbot/stats"
	"github.com/zhekler/trackbot/telemetry"
	"github.com/zhekler/trackbot/twovtwo"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat credentials missing", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("trackbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores
	channelStore := &db.ChannelStore{DB: database}
	matchStore := &db.MatchStore{DB: database}
	twoVTwoStore := &db.TwoVTwoStore{DB: database}
	customsStore := &db.CustomsStore{DB: database}
	duelStore := &db.DuelStore{DB: database}
	gameStore := &db.GameStore{DB: database}

	registry := bot.NewRegistry(channelStore)
	if err := registry.Load(ctx); err != nil {
		slog.Error("failed to load channel registry", slog.Any("err", err))
		os.Exit(1)
	}

	apiClient := &codapi.Client{
		SSOToken:  cfg.CODSSOToken,
		UserAgent: cfg.UserAgent,
	}

	// Services
	gameSvc := games.NewService(gameStore)
	customsSvc := &customs.Service{Store: customsStore}
	statsSvc := &stats.Service{Matches: matchStore}
	duelMgr := duel.NewManager(duelStore)
	board := &twovtwo.Scoreboard{
		Store: twoVTwoStore,
		Enabled: func(channel string) bool {
			entry := registry.Get(channel)
			return entry != nil && entry.TwoVTwo
		},
		MinAnnounce: 25 * time.Second,
	}

	// Chat wiring. The announcer's Say is bound after the bot exists.
	var chatBot *bot.Bot
	say := func(channel, text string) { chatBot.Say(channel, text) }
	announcer := twovtwo.NewAnnouncer(board, say)

	handlers := &bot.Handlers{
		Games:       gameSvc,
		Customs:     customsSvc,
		Stats:       statsSvc,
		Duels:       duelMgr,
		Board:       board,
		Announcer:   announcer,
		API:         apiClient,
		Customs2:    customsStore,
		HomeChannel: cfg.HomeChannel,
		Part:        func(channel string) { chatBot.Part(channel) },
	}
	dispatcher := &bot.Dispatcher{
		Registry:      registry,
		Cooldowns:     bot.NewCooldowns(),
		Commands:      handlers.Table(),
		Operator:      cfg.BotOperator,
		IsVIP:         cfg.IsVIP,
		Say:           say,
		Log:           slog.Default().With(slog.String("component", "dispatcher")),
		DefaultWindow: time.Second,
	}
	// Prefer the refresher-maintained token over the static env one.
	chatOAuth := oauth.ChatToken(ctx, database, "twitch", cfg.BotOAuth)
	chatBot = bot.New(cfg.BotUsername, chatOAuth, dispatcher, registry)

	// Restore announcer state for channels that had 2v2 on at shutdown.
	for _, entry := range registry.Tracked(func(c *db.Channel) bool { return c.TwoVTwo }) {
		announcer.Enable(entry.Channel)
		if entry.Paused {
			announcer.Pause(entry.Channel)
		}
	}

	go announcer.Run(ctx)
	go duelMgr.Run(ctx, 30*time.Second)

	if cfg.CODSSOToken != "" {
		p := poller.New(registry, matchStore, apiClient, cfg.PollInterval, cfg.StaggerDelay, cfg.RetryDelay)
		go func() {
			if err := p.Run(ctx); err != nil {
				slog.Error("poller exited with error", slog.Any("err", err))
			}
		}()
	} else {
		slog.Info("match polling disabled (missing COD_SSO_TOKEN)")
	}

	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		if err := oauth.SeedToken(ctx, database, "twitch", cfg.TwitchRefreshToken); err != nil {
			slog.Warn("oauth token seed failed", slog.Any("err", err))
		}
		oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute,
			oauth.TwitchRefresh(cfg.TwitchClientID, cfg.TwitchClientSecret))
	}

	mux := server.NewMux(&server.Handlers{
		DB:         database,
		Registry:   registry,
		Board:      board,
		Announcer:  announcer,
		Customs:    customsSvc,
		CustomsDB:  customsStore,
		Stats:      statsSvc,
		Matches:    matchStore,
		API:        apiClient,
		Say:        say,
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		StartedAt:  time.Now(),
	})
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, mux); err != nil && err != http.ErrServerClosed {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	go func() {
		if err := chatBot.Run(ctx); err != nil {
			slog.Error("chat loop exited with error", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// setupLogging configures slog from LOG_LEVEL and LOG_FORMAT.
// Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
