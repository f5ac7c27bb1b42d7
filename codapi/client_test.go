package codapi

import (
	"context"
	"errors"
	"testing"

	"github.com/zhekler/trackbot/testutil"
)

func testClient(m *testutil.MockCODServer) *Client {
	return &Client{
		BaseURL:   m.URL(),
		LoginURL:  m.URL(),
		SSOToken:  "test-token",
		UserAgent: "test-agent",
	}
}

func TestLoginRequiresToken(t *testing.T) {
	c := &Client{}
	if err := c.Login(context.Background()); err == nil {
		t.Fatal("login without sso token should fail")
	}
}

func TestRecentMatches(t *testing.T) {
	m := testutil.NewMockCODServer(t)
	m.Responses["/crm/cod/v2/title/mw/platform/uno/gamer/player1/matches/wz/start/0/end/0/details"] =
		testutil.Envelope("success", map[string]any{
			"matches": []map[string]any{
				{
					"utcStartSeconds": 1700000000,
					"matchID":         "m1",
					"mode":            "br_brquads",
					"playerStats": map[string]any{
						"kills": 7, "deaths": 2, "teamPlacement": 3,
						"gulagKills": 1, "longestStreak": 4,
					},
				},
			},
		})

	c := testClient(m)
	matches, err := c.RecentMatches(context.Background(), "player1", "uno")
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	got := matches[0]
	if got.MatchID != "m1" || got.Mode != "br_brquads" || got.UTCStartSeconds != 1700000000 {
		t.Errorf("match = %+v", got)
	}
	if got.PlayerStats.Kills != 7 || got.PlayerStats.TeamPlacement != 3 || got.PlayerStats.GulagKills != 1 {
		t.Errorf("player stats = %+v", got.PlayerStats)
	}
}

func TestEnvelopeFailureBecomesAPIError(t *testing.T) {
	m := testutil.NewMockCODServer(t)
	m.Responses["/crm/cod/v2/title/mw/platform/uno/gamer/hidden/matches/wz/start/0/end/0/details"] =
		testutil.Envelope("error", map[string]string{"message": "Not permitted: user not found"})

	c := testClient(m)
	_, err := c.RecentMatches(context.Background(), "hidden", "uno")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "Not permitted: user not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if Translate(apiErr) != "404 - Not found. Incorrect username or platform? Misconfigured privacy settings?" {
		t.Errorf("translated = %q", Translate(apiErr))
	}
}

func TestMatchDetailAndTeammates(t *testing.T) {
	m := testutil.NewMockCODServer(t)
	m.Responses["/crm/cod/v2/title/mw/platform/acti/fullMatch/wz/m1/en"] =
		testutil.Envelope("success", map[string]any{
			"allPlayers": []map[string]any{
				{"playerStats": map[string]any{"kills": 5, "deaths": 1},
					"player": map[string]any{"uno": "u1", "team": "alpha", "username": "Me"}},
				{"playerStats": map[string]any{"kills": 3, "deaths": 2},
					"player": map[string]any{"uno": "u2", "team": "alpha", "username": "Mate"}},
				{"playerStats": map[string]any{"kills": 9, "deaths": 0},
					"player": map[string]any{"uno": "u3", "team": "bravo", "username": "Enemy"}},
			},
		})

	c := testClient(m)
	players, err := c.MatchDetail(context.Background(), "m1")
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}
	mates := Teammates(players, "u1", 3)
	if len(mates) != 1 {
		t.Fatalf("got %d teammates, want 1", len(mates))
	}
	if mates[0].Name != "Mate" || mates[0].Kills != 3 || mates[0].Deaths != 2 {
		t.Errorf("teammate = %+v", mates[0])
	}
}

func TestTeammatesLimitAndUnknownPlayer(t *testing.T) {
	players := []MatchPlayer{
		{Player: struct {
			Uno      string `json:"uno"`
			Team     string `json:"team"`
			Username string `json:"username"`
		}{Uno: "u1", Team: "alpha", Username: "Me"}},
	}
	for i := 0; i < 5; i++ {
		p := MatchPlayer{}
		p.Player.Uno = "mate" + string(rune('a'+i))
		p.Player.Team = "alpha"
		p.Player.Username = "Mate"
		players = append(players, p)
	}
	if got := Teammates(players, "u1", 3); len(got) != 3 {
		t.Errorf("got %d teammates, want 3", len(got))
	}
	if got := Teammates(players, "stranger", 3); got != nil {
		t.Errorf("unknown player should yield nil, got %+v", got)
	}
}

func TestLifetime(t *testing.T) {
	m := testutil.NewMockCODServer(t)
	m.Responses["/stats/cod/v1/title/mw/platform/uno/gamer/player1/profile/type/wz"] =
		testutil.Envelope("success", map[string]any{
			"username": "Streamer",
			"lifetime": map[string]any{"mode": map[string]any{"br": map[string]any{
				"properties": map[string]any{"timePlayed": 7200.0, "kdRatio": 2.5, "wins": 10, "kills": 500},
			}}},
			"weekly": map[string]any{"mode": map[string]any{"br_all": map[string]any{
				"properties": map[string]any{"kdRatio": 3.0},
			}}},
		})

	c := testClient(m)
	sum, err := c.Lifetime(context.Background(), "player1", "uno")
	if err != nil {
		t.Fatalf("Lifetime: %v", err)
	}
	if sum.Username != "Streamer" || sum.HoursPlay != 2 || sum.LifetimeKD != 2.5 {
		t.Errorf("summary = %+v", sum)
	}
	if !sum.HasWeekly || sum.WeeklyKD != 3.0 {
		t.Errorf("weekly = %v %v", sum.HasWeekly, sum.WeeklyKD)
	}
}
