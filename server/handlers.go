package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zhekler/trackbot/bot"
	"github.com/zhekler/trackbot/codapi"
	"github.com/zhekler/trackbot/customs"
	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/poller"
	"github.com/zhekler/trackbot/stats"
	"github.com/zhekler/trackbot/telemetry"
	"github.com/zhekler/trackbot/twovtwo"
)

// Handlers carries the service dependencies for the HTTP routes.
type Handlers struct {
	DB         *sql.DB
	Registry   *bot.Registry
	Board      *twovtwo.Scoreboard
	Announcer  *twovtwo.Announcer
	Customs    *customs.Service
	CustomsDB  *db.CustomsStore
	Stats      *stats.Service
	Matches    *db.MatchStore
	API        *codapi.Client
	Say        func(channel, text string)
	AdminToken string
	StartedAt  time.Time
	Log        *slog.Logger
}

func (h *Handlers) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default().With(slog.String("component", "server"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// channel resolves the path channel to its registry entry, normalized to
// lowercase. Returns nil after writing a 404 when the bot does not know it.
func (h *Handlers) channel(w http.ResponseWriter, r *http.Request) *db.Channel {
	name := strings.ToLower(r.PathValue("channel"))
	entry := h.Registry.Get(name)
	if entry == nil {
		writeError(w, http.StatusNotFound, "unknown channel")
	}
	return entry
}

// HandleHealthz reports liveness only.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadyz reports readiness: the database must answer a ping.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		h.log().Error("readiness ping failed", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus summarizes the running instance.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	tracked := h.Registry.TrackedChannels()
	body := map[string]any{
		"uptime_seconds":   int(time.Since(h.StartedAt).Seconds()),
		"channels":         len(h.Registry.Channels()),
		"tracked_channels": len(tracked),
	}
	if h.DB != nil {
		if tick, err := db.GetKV(r.Context(), h.DB, "poller:last_tick"); err == nil && tick != "" {
			body["poller_last_tick"] = tick
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// HandleTwoVTwoScores returns the channel's scoreboard row.
func (h *Handlers) HandleTwoVTwoScores(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	row, err := h.Board.Store.Get(r.Context(), entry.Channel)
	if err != nil {
		h.log().Error("scoreboard read failed", slog.String("channel", entry.Channel), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "scoreboard read failed")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "no scoreboard for channel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel":   row.Channel,
		"home":      row.HomeKills,
		"mate":      row.MateKills,
		"opp1":      row.Opp1Kills,
		"opp2":      row.Opp2Kills,
		"mate_name": row.MateName,
		"opp1_name": row.Opp1Name,
		"opp2_name": row.Opp2Name,
		"map_reset": row.MapReset,
	})
}

type twoVTwoUpdate struct {
	Home     int    `json:"home"`
	Mate     int    `json:"mate"`
	Opp1     int    `json:"opp1"`
	Opp2     int    `json:"opp2"`
	MateName string `json:"mate_name"`
	Opp1Name string `json:"opp1_name"`
	Opp2Name string `json:"opp2_name"`
	MapReset int    `json:"map_reset"`
}

// HandleTwoVTwoUpdate applies a counter update from the web overlay. Partner
// channels receive their rotated views in the same transaction.
func (h *Handlers) HandleTwoVTwoUpdate(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	if !entry.TwoVTwo {
		writeError(w, http.StatusConflict, "2v2 not enabled for channel")
		return
	}
	var in twoVTwoUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	err := h.Board.Update(r.Context(), entry.Channel,
		in.Home, in.Mate, in.Opp1, in.Opp2,
		strings.ToLower(in.MateName), strings.ToLower(in.Opp1Name), strings.ToLower(in.Opp2Name),
		in.MapReset)
	if err != nil {
		h.log().Error("scoreboard update failed", slog.String("channel", entry.Channel), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "scoreboard update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleTwoVTwoReset zeroes the channel's counters.
func (h *Handlers) HandleTwoVTwoReset(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	if err := h.Board.Reset(r.Context(), entry.Channel); err != nil {
		writeError(w, http.StatusInternalServerError, "scoreboard reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleTwoVTwoEnable turns score recording on or off from the web, mirroring
// the chat toggle: reset counters, flip the flag, start or stop the announcer.
func (h *Handlers) HandleTwoVTwoEnable(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	on := r.URL.Query().Get("on") != "false"
	if on {
		if err := h.Board.Reset(r.Context(), entry.Channel); err != nil {
			writeError(w, http.StatusInternalServerError, "scoreboard reset failed")
			return
		}
	}
	if err := h.Registry.SetFlag(r.Context(), entry.Channel, "two_v_two", on); err != nil {
		writeError(w, http.StatusInternalServerError, "flag update failed")
		return
	}
	if on {
		h.Announcer.Enable(entry.Channel)
	} else {
		h.Announcer.Disable(entry.Channel)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": on})
}

// HandleTwoVTwoPause suspends or resumes periodic announcements.
func (h *Handlers) HandleTwoVTwoPause(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	paused := r.URL.Query().Get("paused") != "false"
	if paused {
		h.Announcer.Pause(entry.Channel)
	} else {
		h.Announcer.Resume(entry.Channel)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

// HandleCustomsEnable turns the customs feature on from the web. Channels
// managed this way are created on the fly and marked thruweb so chat-side
// cleanup knows the row's origin.
func (h *Handlers) HandleCustomsEnable(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("channel"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing channel")
		return
	}
	entry := h.Registry.Get(name)
	if entry == nil {
		entry = &db.Channel{Channel: name, ThruWeb: true}
		if err := h.Registry.Upsert(r.Context(), entry); err != nil {
			writeError(w, http.StatusInternalServerError, "channel create failed")
			return
		}
	}
	if err := h.CustomsDB.Ensure(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, "customs init failed")
		return
	}
	if err := h.Registry.SetFlag(r.Context(), name, "customs", true); err != nil {
		writeError(w, http.StatusInternalServerError, "flag update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// HandleCustomsDisable turns the customs feature off. Rows created through
// the web are removed entirely.
func (h *Handlers) HandleCustomsDisable(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	if entry.ThruWeb {
		if err := h.Registry.Remove(r.Context(), entry.Channel); err != nil {
			writeError(w, http.StatusInternalServerError, "channel remove failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
		return
	}
	if err := h.Registry.SetFlag(r.Context(), entry.Channel, "customs", false); err != nil {
		writeError(w, http.StatusInternalServerError, "flag update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

// customsReply runs a customs operation and relays its chat line as JSON,
// echoing into chat when the channel is joined.
func (h *Handlers) customsReply(w http.ResponseWriter, r *http.Request, entry *db.Channel,
	fn func() (string, error)) {
	line, err := fn()
	if err != nil {
		h.log().Error("customs operation failed", slog.String("channel", entry.Channel), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "customs operation failed")
		return
	}
	if h.Say != nil && entry.Presence && r.URL.Query().Get("announce") == "true" {
		h.Say(entry.Channel, line)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": line})
}

func (h *Handlers) HandleCustomsSetMaps(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count <= 0 {
		writeError(w, http.StatusBadRequest, "invalid count")
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.SetMapCount(r.Context(), entry.Channel, count)
	})
}

func (h *Handlers) HandleCustomsSetPlacement(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	if table == "" || len(strings.Fields(table))%2 != 0 {
		writeError(w, http.StatusBadRequest, "invalid multiplier table")
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.SetMultipliers(r.Context(), entry.Channel, table)
	})
}

func (h *Handlers) HandleCustomsAddMap(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	placement, err1 := strconv.Atoi(r.URL.Query().Get("placement"))
	kills, err2 := strconv.Atoi(r.URL.Query().Get("kills"))
	if err1 != nil || err2 != nil || placement <= 0 || kills < 0 {
		writeError(w, http.StatusBadRequest, "invalid placement or kills")
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.AddMap(r.Context(), entry.Channel, placement, kills)
	})
}

func (h *Handlers) HandleCustomsRemoveMap(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.RemoveMap(r.Context(), entry.Channel)
	})
}

func (h *Handlers) HandleCustomsReset(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.Reset(r.Context(), entry.Channel)
	})
}

func (h *Handlers) HandleCustomsMapCount(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.MapCount(r.Context(), entry.Channel)
	})
}

func (h *Handlers) HandleCustomsScore(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	h.customsReply(w, r, entry, func() (string, error) {
		return h.Customs.Score(r.Context(), entry.Channel)
	})
}

// HandleStats returns a stat line for the channel's linked player. The kind
// query selects which summary, defaulting to the weekly one.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	if entry.ActiID == "" {
		writeError(w, http.StatusNotFound, "no player linked to channel")
		return
	}
	var (
		line string
		err  error
	)
	switch r.URL.Query().Get("kind") {
	case "lastgame":
		line, err = h.Stats.LastGame(r.Context(), entry.ActiID)
	case "daily":
		line, err = h.Stats.Daily(r.Context(), entry.ActiID, entry.TZOffsetMin)
	case "lifetime":
		var sum *stats.LifetimeSummary
		sum, err = h.API.Lifetime(r.Context(), entry.ActiID, entry.Platform)
		if err == nil {
			line = sum.String()
		}
	case "weekly", "":
		line, err = h.Stats.Weekly(r.Context(), entry.ActiID)
	default:
		writeError(w, http.StatusBadRequest, "unknown stats kind")
		return
	}
	if err != nil {
		var apiErr *codapi.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, codapi.Translate(apiErr))
			return
		}
		h.log().Error("stats lookup failed", slog.String("channel", entry.Channel), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "stats lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": line})
}

// HandleAddMatch ingests a single match by ID for the channel's player,
// outside the regular polling cycle.
func (h *Handlers) HandleAddMatch(w http.ResponseWriter, r *http.Request) {
	entry := h.channel(w, r)
	if entry == nil {
		return
	}
	if entry.ActiID == "" {
		writeError(w, http.StatusNotFound, "no player linked to channel")
		return
	}
	matchID := r.PathValue("matchid")

	summaries, err := h.API.RecentMatches(r.Context(), entry.ActiID, entry.Platform)
	if err != nil {
		var apiErr *codapi.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, codapi.Translate(apiErr))
			return
		}
		writeError(w, http.StatusBadGateway, "match fetch failed")
		return
	}
	for _, s := range summaries {
		if s.MatchID != matchID {
			continue
		}
		m := poller.Normalize(s, entry.ActiID)
		if players, err := h.API.MatchDetail(r.Context(), matchID); err == nil {
			m.Teammates = codapi.Teammates(players, entry.UnoID, 3)
		}
		if err := h.Matches.InsertBatch(r.Context(), []db.Match{m}); err != nil {
			writeError(w, http.StatusInternalServerError, "match insert failed")
			return
		}
		if telemetry.MatchesIngested != nil {
			telemetry.MatchesIngested.Inc()
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ingested", "match_id": matchID})
		return
	}
	writeError(w, http.StatusNotFound, "match not found in recent history")
}
