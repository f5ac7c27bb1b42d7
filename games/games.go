// Package games implements the probability mini-games: revolver roulette,
// coinflip, rock-paper-scissors, and the big-vanish random timeout. Replies
// are returned verbatim for the dispatcher to relay; timeout punishments are
// expressed as /timeout chat lines.
package games

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/zhekler/trackbot/db"
)

// Service owns game state access and the randomness source. Intn is swapped
// for a deterministic function in tests.
type Service struct {
	Store *db.GameStore
	Intn  func(n int) int
}

func NewService(store *db.GameStore) *Service {
	return &Service{Store: store, Intn: rand.Intn}
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Roulette plays revolver roulette: a 1/3 chance of a 5 minute timeout.
// First-time players get a warning instead of a result tail.
func (s *Service) Roulette(ctx context.Context, channel, user string) (string, error) {
	survived := s.Intn(3) != 0
	_, _, played, err := s.Store.RouletteRecord(ctx, channel, user)
	if err != nil {
		return "", err
	}
	survive, die, err := s.Store.BumpRoulette(ctx, channel, user, survived)
	if err != nil {
		return "", err
	}
	if !played {
		return fmt.Sprintf("@%s: Revolver Roulette is a game where you have 1/3 chance to be timed out for 5 min. You have been warned.", user), nil
	}
	var reply string
	if survived {
		reply = fmt.Sprintf("/me %s survived RR!", user)
	} else {
		reply = fmt.Sprintf("/timeout %s 300 BOOM you died!", user)
	}
	return fmt.Sprintf("%s %s's record is %d %s and %d %s!",
		reply, user, survive, plural(survive, "survival", "survivals"), die, plural(die, "death", "deaths")), nil
}

// RouletteScore reports a user's cumulative roulette record with win rate.
func (s *Service) RouletteScore(ctx context.Context, channel, user string) (string, error) {
	survive, die, played, err := s.Store.RouletteRecord(ctx, channel, user)
	if err != nil {
		return "", err
	}
	if !played {
		return fmt.Sprintf("%s has not played Revolver Roulette!", user), nil
	}
	rate := "perfect"
	if die > 0 {
		rate = fmt.Sprintf("%.2f%%", 100*float64(survive)/float64(survive+die))
	}
	return fmt.Sprintf("%s has survived Revolver Roulette %d %s and died %d %s! That's a %s win rate!",
		user, survive, plural(survive, "time", "times"), die, plural(die, "time", "times"), rate), nil
}

// RouletteLeaderboard lists the channel's top three by survivals or deaths.
func (s *Service) RouletteLeaderboard(ctx context.Context, channel, rank string) (string, error) {
	rows, err := s.Store.RouletteLeaders(ctx, channel, rank, 3)
	if err != nil {
		return "", err
	}
	title := "Survivals"
	if rank == "die" {
		title = "Deaths"
	}
	return fmt.Sprintf("Revolver Roulette Leaderboard: %s | %s", title, joinLeaders(rows)), nil
}

func joinLeaders(rows []db.LeaderRow) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprintf("%s: %d", r.UserID, r.Value))
	}
	return strings.Join(parts, " | ")
}

// RouletteTotals lists the channel's top three by total plays.
func (s *Service) RouletteTotals(ctx context.Context, channel string) (string, error) {
	rows, err := s.Store.RouletteTotals(ctx, channel, 3)
	if err != nil {
		return "", err
	}
	return "Revolver Roulette Leaderboard: Total Plays | " + joinLeaders(rows), nil
}

// CoinflipLeaderboard lists the channel's top three by correct guesses.
func (s *Service) CoinflipLeaderboard(ctx context.Context, channel string) (string, error) {
	rows, err := s.Store.CoinflipLeaders(ctx, channel, 3)
	if err != nil {
		return "", err
	}
	return "Coinflip Leaderboard: Correct | " + joinLeaders(rows), nil
}

// RPSLeaderboard lists the channel's top three by wins.
func (s *Service) RPSLeaderboard(ctx context.Context, channel string) (string, error) {
	rows, err := s.Store.RPSLeaders(ctx, channel, 3)
	if err != nil {
		return "", err
	}
	return "Rock Paper Scissors Leaderboard: Wins | " + joinLeaders(rows), nil
}

var coinSides = map[string]int{"h": 1, "heads": 1, "t": 0, "tails": 0}

// Coinflip flips a coin against the user's guess; a wrong guess is a one
// minute timeout.
func (s *Service) Coinflip(ctx context.Context, channel, user, input string) (string, error) {
	choice, ok := coinSides[strings.ToLower(input)]
	if !ok {
		return fmt.Sprintf("@%s: %s is not a correct input.", user, input), nil
	}
	won := s.Intn(2) == choice
	correct, wrong, err := s.Store.BumpCoinflip(ctx, channel, user, won)
	if err != nil {
		return "", err
	}
	var reply string
	if won {
		reply = fmt.Sprintf("/me %s has guessed correctly!", user)
	} else {
		reply = fmt.Sprintf("/timeout %s 60 You did NOT guess correctly!", user)
	}
	return fmt.Sprintf("%s %s has guessed correctly %d %s and wrong %d %s!",
		reply, user, correct, plural(correct, "time", "times"), wrong, plural(wrong, "time", "times")), nil
}

// CoinflipScore reports a user's coinflip record in the channel.
func (s *Service) CoinflipScore(ctx context.Context, channel, user string) (string, error) {
	correct, wrong, played, err := s.Store.CoinflipRecord(ctx, channel, user)
	if err != nil {
		return "", err
	}
	if !played {
		return fmt.Sprintf("%s has not played Coinflip!", user), nil
	}
	return fmt.Sprintf("%s has guessed Coinflip correctly %d %s and wrong %d %s!",
		user, correct, plural(correct, "time", "times"), wrong, plural(wrong, "time", "times")), nil
}

var rpsChoices = map[string]int{"r": 0, "rock": 0, "p": 1, "paper": 1, "s": 2, "scissors": 2}

var rpsNames = [3]string{"rock", "paper", "scissors"}

// RPS plays rock-paper-scissors against the bot; losing costs a one minute
// timeout.
func (s *Service) RPS(ctx context.Context, channel, user, input string) (string, error) {
	choice, ok := rpsChoices[strings.ToLower(input)]
	if !ok {
		return fmt.Sprintf("@%s: %s is not valid input.", user, input), nil
	}
	botPick := s.Intn(3)
	result := 0
	switch {
	case (choice+1)%3 == botPick:
		result = -1
	case (botPick+1)%3 == choice:
		result = 1
	}
	wins, losses, ties, err := s.Store.BumpRPS(ctx, channel, user, result)
	if err != nil {
		return "", err
	}
	var reply string
	switch {
	case result > 0:
		reply = fmt.Sprintf("/me Bot got %s. %s won!", rpsNames[botPick], user)
	case result < 0:
		reply = fmt.Sprintf("/timeout %s 60 Bot got %s. You lost!", user, rpsNames[botPick])
	default:
		reply = fmt.Sprintf("/me Bot got %s. %s tied.", rpsNames[botPick], user)
	}
	return fmt.Sprintf("%s %s has won Rock Paper Scissors %d %s, tied %d %s, and lost %d %s!",
		reply, user, wins, plural(wins, "time", "times"), ties, plural(ties, "time", "times"),
		losses, plural(losses, "time", "times")), nil
}

// RPSScore reports a user's rock-paper-scissors record in the channel.
func (s *Service) RPSScore(ctx context.Context, channel, user string) (string, error) {
	wins, losses, ties, played, err := s.Store.RPSRecord(ctx, channel, user)
	if err != nil {
		return "", err
	}
	if !played {
		return fmt.Sprintf("%s has not played Rock Paper Scissors!", user), nil
	}
	return fmt.Sprintf("%s has won Rock Paper Scissors %d %s, tied %d %s, and lost %d %s!",
		user, wins, plural(wins, "time", "times"), ties, plural(ties, "time", "times"),
		losses, plural(losses, "time", "times")), nil
}

// Vanish times the user out for a random 100 to 1,000,000 seconds and tracks
// their personal high and low rolls.
func (s *Service) Vanish(ctx context.Context, channel, user string) (string, error) {
	roll := s.Intn(999901) + 100
	highest, lowest, err := s.Store.BumpVanish(ctx, channel, user, roll)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/timeout %s %d BIG Vanish! Random timeout between 100 and 1,000,000 seconds. Your record high is %d seconds and low is %d seconds!",
		user, roll, highest, lowest), nil
}

// VanishLeaderboard lists the channel's top three rolls, highest or lowest.
func (s *Service) VanishLeaderboard(ctx context.Context, channel string, highest bool) (string, error) {
	rows, err := s.Store.VanishLeaders(ctx, channel, highest, 3)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "Big Vanish Leaderboard | No users have played bigvanish yet", nil
	}
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprintf("%s: %d seconds", r.UserID, r.Value))
	}
	title := "Big Vanish Leaderboard"
	if !highest {
		title = "Big Vanish Lowest"
	}
	return title + " | " + strings.Join(parts, " | "), nil
}
