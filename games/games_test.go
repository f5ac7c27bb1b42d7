package games

import (
	"context"
	"strings"
	"testing"

	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/testutil"
)

func testService(t *testing.T, rolls ...int) *Service {
	t.Helper()
	conn := testutil.PG(t)
	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"roulette", "coinflip", "rockpaperscissors", "bigvanish"} {
			_, _ = conn.Exec(`DELETE FROM `+table+` WHERE channel LIKE 'gametest_%'`)
		}
	})
	s := NewService(&db.GameStore{DB: conn})
	i := 0
	s.Intn = func(n int) int {
		r := rolls[i%len(rolls)]
		i++
		return r
	}
	return s
}

func TestRouletteFirstPlayWarns(t *testing.T) {
	s := testService(t, 1) // survives
	got, err := s.Roulette(context.Background(), "gametest_rr", "alice")
	if err != nil {
		t.Fatalf("roulette: %v", err)
	}
	if !strings.Contains(got, "You have been warned") {
		t.Errorf("first play = %q, want warning", got)
	}
	// Second play reports the outcome and running record.
	got, err = s.Roulette(context.Background(), "gametest_rr", "alice")
	if err != nil {
		t.Fatalf("roulette: %v", err)
	}
	if !strings.Contains(got, "survived RR") || !strings.Contains(got, "2 survivals and 0 deaths") {
		t.Errorf("second play = %q", got)
	}
}

func TestRouletteDeath(t *testing.T) {
	s := testService(t, 0) // chamber fires
	ctx := context.Background()
	if _, err := s.Roulette(ctx, "gametest_rrd", "bob"); err != nil {
		t.Fatalf("roulette: %v", err)
	}
	got, err := s.Roulette(ctx, "gametest_rrd", "bob")
	if err != nil {
		t.Fatalf("roulette: %v", err)
	}
	if !strings.HasPrefix(got, "/timeout bob 300 BOOM you died!") {
		t.Errorf("death reply = %q", got)
	}
}

func TestRouletteScoreUnplayed(t *testing.T) {
	s := testService(t, 0)
	got, err := s.RouletteScore(context.Background(), "gametest_rr", "nobody")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got != "nobody has not played Revolver Roulette!" {
		t.Errorf("score = %q", got)
	}
}

func TestCoinflip(t *testing.T) {
	s := testService(t, 1) // coin lands heads
	ctx := context.Background()

	got, err := s.Coinflip(ctx, "gametest_coin", "alice", "heads")
	if err != nil {
		t.Fatalf("coinflip: %v", err)
	}
	if !strings.Contains(got, "guessed correctly") || strings.Contains(got, "/timeout") {
		t.Errorf("winning flip = %q", got)
	}

	got, err = s.Coinflip(ctx, "gametest_coin", "alice", "tails")
	if err != nil {
		t.Fatalf("coinflip: %v", err)
	}
	if !strings.HasPrefix(got, "/timeout alice 60 You did NOT guess correctly!") {
		t.Errorf("losing flip = %q", got)
	}

	got, err = s.Coinflip(ctx, "gametest_coin", "alice", "sideways")
	if err != nil {
		t.Fatalf("coinflip: %v", err)
	}
	if got != "@alice: sideways is not a correct input." {
		t.Errorf("bad input = %q", got)
	}
}

func TestRPSOutcomes(t *testing.T) {
	ctx := context.Background()

	// Bot picks scissors (2); rock wins.
	s := testService(t, 2)
	got, err := s.RPS(ctx, "gametest_rps", "alice", "rock")
	if err != nil {
		t.Fatalf("rps: %v", err)
	}
	if !strings.Contains(got, "Bot got scissors. alice won!") {
		t.Errorf("win = %q", got)
	}

	// Bot picks paper (1); rock loses.
	s = testService(t, 1)
	got, err = s.RPS(ctx, "gametest_rps2", "alice", "rock")
	if err != nil {
		t.Fatalf("rps: %v", err)
	}
	if !strings.HasPrefix(got, "/timeout alice 60 Bot got paper. You lost!") {
		t.Errorf("loss = %q", got)
	}

	// Bot picks rock (0); rock ties.
	s = testService(t, 0)
	got, err = s.RPS(ctx, "gametest_rps3", "alice", "r")
	if err != nil {
		t.Fatalf("rps: %v", err)
	}
	if !strings.Contains(got, "Bot got rock. alice tied.") {
		t.Errorf("tie = %q", got)
	}
}

func TestLeaderboards(t *testing.T) {
	s := testService(t, 1) // coin heads, bot paper
	ctx := context.Background()

	// alice guesses right twice, bob once right once wrong.
	for _, play := range []struct{ user, guess string }{
		{"alice", "heads"}, {"alice", "heads"}, {"bob", "heads"}, {"bob", "tails"},
	} {
		if _, err := s.Coinflip(ctx, "gametest_lb", play.user, play.guess); err != nil {
			t.Fatalf("coinflip: %v", err)
		}
	}
	got, err := s.CoinflipLeaderboard(ctx, "gametest_lb")
	if err != nil {
		t.Fatalf("coinflip leaderboard: %v", err)
	}
	if !strings.HasPrefix(got, "Coinflip Leaderboard: Correct | alice: 2 | bob: 1") {
		t.Errorf("coinflip leaderboard = %q", got)
	}

	// Bot always picks paper: scissors wins, rock loses.
	for _, play := range []struct{ user, pick string }{
		{"alice", "scissors"}, {"alice", "scissors"}, {"bob", "scissors"}, {"bob", "rock"},
	} {
		if _, err := s.RPS(ctx, "gametest_lb", play.user, play.pick); err != nil {
			t.Fatalf("rps: %v", err)
		}
	}
	got, err = s.RPSLeaderboard(ctx, "gametest_lb")
	if err != nil {
		t.Fatalf("rps leaderboard: %v", err)
	}
	if !strings.HasPrefix(got, "Rock Paper Scissors Leaderboard: Wins | alice: 2 | bob: 1") {
		t.Errorf("rps leaderboard = %q", got)
	}
}

func TestRouletteLeaderboardRanksRequestedStat(t *testing.T) {
	s := testService(t, 1, 1, 0) // survive, survive, die
	ctx := context.Background()

	for _, user := range []string{"alice", "bob", "bob"} {
		if _, err := s.Roulette(ctx, "gametest_rrlb", user); err != nil {
			t.Fatalf("roulette: %v", err)
		}
	}
	got, err := s.RouletteLeaderboard(ctx, "gametest_rrlb", "survive")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !strings.HasPrefix(got, "Revolver Roulette Leaderboard: Survivals | bob: 1 | alice: 1") &&
		!strings.HasPrefix(got, "Revolver Roulette Leaderboard: Survivals | alice: 1 | bob: 1") {
		t.Errorf("survive leaderboard = %q", got)
	}
	got, err = s.RouletteLeaderboard(ctx, "gametest_rrlb", "die")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !strings.HasPrefix(got, "Revolver Roulette Leaderboard: Deaths | bob: 1 | alice: 0") {
		t.Errorf("die leaderboard = %q", got)
	}
}

func TestVanishTracksExtremes(t *testing.T) {
	s := testService(t, 400, 100, 900)
	ctx := context.Background()

	// Rolls are Intn(999901)+100: 500, 200, 1000.
	if _, err := s.Vanish(ctx, "gametest_van", "alice"); err != nil {
		t.Fatalf("vanish: %v", err)
	}
	if _, err := s.Vanish(ctx, "gametest_van", "alice"); err != nil {
		t.Fatalf("vanish: %v", err)
	}
	got, err := s.Vanish(ctx, "gametest_van", "alice")
	if err != nil {
		t.Fatalf("vanish: %v", err)
	}
	if !strings.HasPrefix(got, "/timeout alice 1000 ") {
		t.Errorf("vanish reply = %q", got)
	}
	if !strings.Contains(got, "record high is 1000 seconds and low is 200 seconds") {
		t.Errorf("extremes = %q", got)
	}
}
