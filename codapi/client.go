// Package codapi is a minimal client for the third-party match-data API:
// SSO device login, recent-match listing, full match detail, and lifetime
// profile stats, with upstream failures translated to chat-ready messages.
package codapi

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/stats"
)

const (
	defaultBaseURL  = "https://my.callofduty.com/api/papi-client/"
	defaultLoginURL = "https://profile.callofduty.com/cod/mapp/"
	baseCookie      = "new_SiteId=cod; ACT_SSO_LOCALE=en_US;country=US;"
	fakeXSRF        = "68e8b62e-1d9d-4ce1-b93f-cbe5ff31a041"
)

// Client calls the match-data API. Zero-value URL fields fall back to the
// production endpoints; tests point them at an httptest server.
type Client struct {
	BaseURL    string
	LoginURL   string
	SSOToken   string
	UserAgent  string
	HTTPClient *http.Client

	mu         sync.Mutex
	loggedIn   bool
	deviceID   string
	authHeader string
}

// MatchPlayerStats is the per-player stat block consumed from match payloads.
type MatchPlayerStats struct {
	Kills         int `json:"kills"`
	Deaths        int `json:"deaths"`
	GulagKills    int `json:"gulagKills"`
	GulagDeaths   int `json:"gulagDeaths"`
	LongestStreak int `json:"longestStreak"`
	TeamPlacement int `json:"teamPlacement"`
}

// MatchSummary is one entry from the recent-matches listing.
type MatchSummary struct {
	UTCStartSeconds int64            `json:"utcStartSeconds"`
	MatchID         string           `json:"matchID"`
	Mode            string           `json:"mode"`
	PlayerStats     MatchPlayerStats `json:"playerStats"`
}

// MatchPlayer is one roster entry from the full match detail.
type MatchPlayer struct {
	PlayerStats MatchPlayerStats `json:"playerStats"`
	Player      struct {
		Uno      string `json:"uno"`
		Team     string `json:"team"`
		Username string `json:"username"`
	} `json:"player"`
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) loginURL() string {
	if c.LoginURL != "" {
		return c.LoginURL
	}
	return defaultLoginURL
}

// Login registers a synthetic device with the SSO token and caches the
// resulting auth header. Called lazily before the first data request.
func (c *Client) Login(ctx context.Context) error {
	if c.SSOToken == "" {
		return fmt.Errorf("sso token is empty")
	}
	sum := md5.Sum([]byte(uuid.NewString()))
	deviceID := fmt.Sprintf("%x", sum)

	body, _ := json.Marshal(map[string]string{"deviceId": deviceID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL()+"registerDevice", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", baseCookie)
	resp, err := c.http().Do(req)
	if err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	var out struct {
		Data struct {
			AuthHeader string `json:"authHeader"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode register device: %w", err)
	}
	c.mu.Lock()
	c.deviceID = deviceID
	c.authHeader = out.Data.AuthHeader
	c.loggedIn = true
	c.mu.Unlock()
	return nil
}

// get runs an authenticated envelope request against the data API and returns
// the inner data document.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	c.mu.Lock()
	loggedIn := c.loggedIn
	c.mu.Unlock()
	if !loggedIn {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+path, nil)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "bearer "+c.authHeader)
	req.Header.Set("x_cod_device_id", c.deviceID)
	c.mu.Unlock()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-XSRF-TOKEN", fakeXSRF)
	req.Header.Set("X-CSRF-TOKEN", fakeXSRF)
	req.Header.Set("Acti-Auth", "Bearer "+c.SSOToken)
	req.Header.Set("x-requested-with", c.UserAgent)
	req.Header.Set("Cookie", fmt.Sprintf("%sACT_SSO_COOKIE=%s;XSRF-TOKEN=%s;API_CSRF_TOKEN=%s;",
		baseCookie, c.SSOToken, fakeXSRF, fakeXSRF))

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("match api request: %w", err)
	}
	defer closeBody(resp)

	var envelope struct {
		Status string `json:"status"`
		Data   json.RawMessage
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &APIError{Status: resp.StatusCode}
	}
	if envelope.Status != "success" {
		var inner struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(envelope.Data, &inner)
		return nil, &APIError{Status: resp.StatusCode, Message: inner.Message}
	}
	return envelope.Data, nil
}

// RecentMatches fetches the player's last 20 matches with summary stats.
func (c *Client) RecentMatches(ctx context.Context, playerID, platform string) ([]MatchSummary, error) {
	path := fmt.Sprintf("crm/cod/v2/title/mw/platform/%s/gamer/%s/matches/wz/start/0/end/0/details",
		url.PathEscape(platform), url.PathEscape(playerID))
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out struct {
		Matches []MatchSummary `json:"matches"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode recent matches: %w", err)
	}
	return out.Matches, nil
}

// MatchDetail fetches the full roster for a match, used to derive teammates.
func (c *Client) MatchDetail(ctx context.Context, matchID string) ([]MatchPlayer, error) {
	path := fmt.Sprintf("crm/cod/v2/title/mw/platform/acti/fullMatch/wz/%s/en", url.PathEscape(matchID))
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out struct {
		AllPlayers []MatchPlayer `json:"allPlayers"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode match detail: %w", err)
	}
	return out.AllPlayers, nil
}

// Teammates returns up to limit squadmates of playerUno from a match roster.
func Teammates(players []MatchPlayer, playerUno string, limit int) []db.Teammate {
	team := ""
	for _, p := range players {
		if p.Player.Uno == playerUno {
			team = p.Player.Team
			break
		}
	}
	if team == "" {
		return nil
	}
	var out []db.Teammate
	for _, p := range players {
		if p.Player.Team != team || p.Player.Uno == playerUno {
			continue
		}
		out = append(out, db.Teammate{
			Name:   p.Player.Username,
			Kills:  p.PlayerStats.Kills,
			Deaths: p.PlayerStats.Deaths,
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

// Lifetime fetches an account's lifetime profile and condenses the fields
// shown by the stats lookup commands.
func (c *Client) Lifetime(ctx context.Context, playerID, platform string) (*stats.LifetimeSummary, error) {
	path := fmt.Sprintf("stats/cod/v1/title/mw/platform/%s/gamer/%s/profile/type/wz",
		url.PathEscape(platform), url.PathEscape(playerID))
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out struct {
		Username string `json:"username"`
		Lifetime struct {
			Mode struct {
				BR struct {
					Properties struct {
						TimePlayed float64 `json:"timePlayed"`
						KDRatio    float64 `json:"kdRatio"`
						Wins       int     `json:"wins"`
						Kills      int     `json:"kills"`
					} `json:"properties"`
				} `json:"br"`
			} `json:"mode"`
		} `json:"lifetime"`
		Weekly struct {
			Mode struct {
				BRAll *struct {
					Properties struct {
						KDRatio float64 `json:"kdRatio"`
					} `json:"properties"`
				} `json:"br_all"`
			} `json:"mode"`
		} `json:"weekly"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode lifetime stats: %w", err)
	}
	sum := &stats.LifetimeSummary{
		Username:   out.Username,
		HoursPlay:  out.Lifetime.Mode.BR.Properties.TimePlayed / 3600,
		LifetimeKD: out.Lifetime.Mode.BR.Properties.KDRatio,
		Wins:       out.Lifetime.Mode.BR.Properties.Wins,
		Kills:      out.Lifetime.Mode.BR.Properties.Kills,
	}
	if sum.Username == "" {
		sum.Username = stats.PlayerName(playerID)
	}
	if out.Weekly.Mode.BRAll != nil {
		sum.HasWeekly = true
		sum.WeeklyKD = out.Weekly.Mode.BRAll.Properties.KDRatio
	}
	return sum, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}
