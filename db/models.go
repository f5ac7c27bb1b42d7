package db

import "time"

// Channel is one broadcaster's row: identity, linked player, and feature flags.
// The in-memory registry mirrors these rows; every flag mutation is persisted
// before the registry copy changes.
type Channel struct {
	Channel     string
	DisplayName string
	ActiID      string
	UnoID       string
	Platform    string
	TZOffsetMin int

	Roulette bool
	Coinflip bool
	RPS      bool
	Vanish   bool
	Customs  bool
	Matches  bool
	TwoVTwo  bool
	Duels    bool
	Subs     bool
	Presence bool
	Paused   bool
	ThruWeb  bool
}

// Teammate is one squadmate's summary attached to a match record.
type Teammate struct {
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// Match is one ingested game for a tracked player, keyed by (MatchID, PlayerID).
type Match struct {
	Timestamp   int64
	MatchID     string
	Placement   string
	Kills       int
	Deaths      int
	GulagKills  int
	GulagDeaths int
	Streak      int
	GameMode    string
	Teammates   []Teammate
	PlayerID    string
}

// TwoVTwoRow is one channel's view of the linked 2v2 scoreboard.
type TwoVTwoRow struct {
	Channel      string
	HomeKills    int
	MateKills    int
	Opp1Kills    int
	Opp2Kills    int
	MateName     string
	Opp1Name     string
	Opp2Name     string
	MapReset     int
	LastAnnounce time.Time
}

// CustomsState is a channel's custom-tournament series and scoring table.
type CustomsState struct {
	Channel     string
	Placements  []int
	Kills       []int
	MapCount    int
	Multipliers string
}

// LeaderRow is one leaderboard entry: a user and the stat the board ranks by.
type LeaderRow struct {
	UserID string
	Value  int
}

// DuelRecord is a user's cumulative duel win/loss tally in one channel.
type DuelRecord struct {
	Channel string
	UserID  string
	Wins    int
	Losses  int
}
