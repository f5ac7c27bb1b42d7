package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zhekler/trackbot/codapi"
	"github.com/zhekler/trackbot/customs"
	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/duel"
	"github.com/zhekler/trackbot/games"
	"github.com/zhekler/trackbot/stats"
	"github.com/zhekler/trackbot/twovtwo"
)

// Handlers bundles the collaborators the command table closes over.
type Handlers struct {
	Games     *games.Service
	Customs   *customs.Service
	Stats     *stats.Service
	Duels     *duel.Manager
	Board     *twovtwo.Scoreboard
	Announcer *twovtwo.Announcer
	API       *codapi.Client
	Customs2  *db.CustomsStore

	// HomeChannel hosts the moderation relays and !check.
	HomeChannel string
	// Part leaves a chat channel, used by the opt-out command.
	Part func(channel string)
}

func displayOrLogin(sp Speaker) string {
	if sp.DisplayName != "" {
		return sp.DisplayName
	}
	return sp.Username
}

// apiReply unwraps a match-API failure into its chat-ready message; other
// errors propagate so the dispatcher logs them.
func apiReply(s string, err error) (string, error) {
	var apiErr *codapi.APIError
	if errors.As(err, &apiErr) {
		return codapi.Translate(apiErr), nil
	}
	return s, err
}

// toggle flips a feature flag for the channel. Asking for the state the
// channel is already in is a silent no-op, like every other refused command.
func (h *Handlers) toggle(flag string, on bool, reply string) func(context.Context, *Dispatcher, string, Speaker, []string) (string, error) {
	return func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		if entry == nil || flagValue(entry, flag) == on {
			return "", nil
		}
		if err := d.Registry.SetFlag(ctx, channel, flag, on); err != nil {
			return "", err
		}
		return reply, nil
	}
}

func flagValue(c *db.Channel, flag string) bool {
	switch flag {
	case "roulette":
		return c.Roulette
	case "coinflip":
		return c.Coinflip
	case "rps":
		return c.RPS
	case "vanish":
		return c.Vanish
	case "customs":
		return c.Customs
	case "matches":
		return c.Matches
	case "two_v_two":
		return c.TwoVTwo
	case "duels":
		return c.Duels
	case "subs":
		return c.Subs
	case "paused":
		return c.Paused
	}
	return false
}

// Table builds the declarative command table consumed by the dispatcher.
func (h *Handlers) Table() map[string]Command {
	t := map[string]Command{}

	// Feature toggles, moderator or owner.
	t["!rron"] = Command{Perm: PermModerator, Handler: h.toggle("roulette", true, "Revolver Roulette has been enabled. Type !rr to play!")}
	t["!rroff"] = Command{Perm: PermModerator, Handler: h.toggle("roulette", false, "Revolver Roulette has been disabled.")}
	t["!coinon"] = Command{Perm: PermModerator, Handler: h.toggle("coinflip", true, "Coinflip enabled.")}
	t["!coinoff"] = Command{Perm: PermModerator, Handler: h.toggle("coinflip", false, "Coinflip disabled.")}
	t["!rpson"] = Command{Perm: PermModerator, Handler: h.toggle("rps", true, "Rock paper scissors enabled.")}
	t["!rpsoff"] = Command{Perm: PermModerator, Handler: h.toggle("rps", false, "Rock paper scissors disabled.")}
	t["!bigvanishon"] = Command{Perm: PermModerator, Handler: h.toggle("vanish", true, "Bigvanish enabled.")}
	t["!bigvanishoff"] = Command{Perm: PermModerator, Handler: h.toggle("vanish", false, "Bigvanish disabled.")}
	t["!matcheson"] = Command{Perm: PermModerator, Handler: h.toggle("matches", true, "Matches enabled.")}
	t["!matchesoff"] = Command{Perm: PermModerator, Handler: h.toggle("matches", false, "Matches disabled.")}
	t["!duelon"] = Command{Perm: PermModerator, Handler: h.toggle("duels", true, "Duels enabled. Type !duel <user> to challenge someone!")}
	t["!dueloff"] = Command{Perm: PermModerator, Handler: h.toggle("duels", false, "Duels disabled.")}
	t["!subson"] = Command{Perm: PermModerator, Handler: h.toggle("subs", true, "Sub thanks enabled.")}
	t["!subsoff"] = Command{Perm: PermModerator, Handler: h.toggle("subs", false, "Sub thanks disabled.")}

	t["!customon"] = Command{Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		if entry == nil || entry.Customs {
			return "", nil
		}
		if err := h.Customs2.Ensure(ctx, channel); err != nil {
			return "", err
		}
		if err := d.Registry.SetFlag(ctx, channel, "customs", true); err != nil {
			return "", err
		}
		return "Customs scoring enabled.", nil
	}}
	t["!customoff"] = Command{Perm: PermModerator, Handler: h.toggle("customs", false, "Customs scoring disabled.")}

	t["!2v2on"] = Command{Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		if entry == nil || entry.TwoVTwo {
			return "", nil
		}
		if err := h.Board.Reset(ctx, channel); err != nil {
			return "", err
		}
		if err := d.Registry.SetFlag(ctx, channel, "two_v_two", true); err != nil {
			return "", err
		}
		h.Announcer.Enable(channel)
		return "Score recording enabled.", nil
	}}
	t["!2v2off"] = Command{Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		if entry == nil || !entry.TwoVTwo {
			return "", nil
		}
		if err := d.Registry.SetFlag(ctx, channel, "two_v_two", false); err != nil {
			return "", err
		}
		h.Announcer.Disable(channel)
		return "Score recording disabled.", nil
	}}

	// Revolver roulette.
	roulette := func(c *db.Channel) bool { return c.Roulette }
	t["!rr"] = Command{Flag: roulette, UserWindow: 30 * time.Second, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.Roulette(ctx, channel, displayOrLogin(sp))
	}}
	t["!rrscore"] = Command{Flag: roulette, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.RouletteScore(ctx, channel, displayOrLogin(sp))
	}}
	t["!rrscoreother"] = Command{Flag: roulette, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if len(args) == 0 {
			return "", nil
		}
		return h.Games.RouletteScore(ctx, channel, args[0])
	}}
	t["!rrlb"] = Command{Flag: roulette, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.RouletteLeaderboard(ctx, channel, "survive")
	}}
	t["!rrlbdie"] = Command{Flag: roulette, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.RouletteLeaderboard(ctx, channel, "die")
	}}
	t["!rrtotals"] = Command{Flag: roulette, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.RouletteTotals(ctx, channel)
	}}

	// Coinflip.
	coin := func(c *db.Channel) bool { return c.Coinflip }
	t["!coin"] = Command{Flag: coin, Perm: PermSubscriber, UserWindow: 15 * time.Second, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if len(args) == 0 {
			return fmt.Sprintf("@%s: guess heads or tails.", displayOrLogin(sp)), nil
		}
		return h.Games.Coinflip(ctx, channel, displayOrLogin(sp), args[0])
	}}
	t["!coinscore"] = Command{Flag: coin, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.CoinflipScore(ctx, channel, displayOrLogin(sp))
	}}
	t["!coinlb"] = Command{Flag: coin, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.CoinflipLeaderboard(ctx, channel)
	}}

	// Rock paper scissors.
	rps := func(c *db.Channel) bool { return c.RPS }
	t["!rps"] = Command{Flag: rps, Perm: PermSubscriber, UserWindow: 15 * time.Second, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if len(args) == 0 {
			return fmt.Sprintf("@%s: pick rock, paper, or scissors.", displayOrLogin(sp)), nil
		}
		return h.Games.RPS(ctx, channel, displayOrLogin(sp), args[0])
	}}
	t["!rpsscore"] = Command{Flag: rps, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.RPSScore(ctx, channel, displayOrLogin(sp))
	}}
	t["!rpslb"] = Command{Flag: rps, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.RPSLeaderboard(ctx, channel)
	}}

	// Big vanish.
	vanish := func(c *db.Channel) bool { return c.Vanish }
	t["!bigvanish"] = Command{Flag: vanish, UserWindow: 15 * time.Second, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		reply, err := h.Games.Vanish(ctx, channel, displayOrLogin(sp))
		if err != nil {
			return "", err
		}
		// The timeout is the joke; lift it a few seconds later.
		user := sp.Username
		time.AfterFunc(3*time.Second, func() { d.Say(channel, "/untimeout "+user) })
		return reply, nil
	}}
	t["!bigvanishlb"] = Command{Flag: vanish, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.VanishLeaderboard(ctx, channel, true)
	}}
	t["!bigvanishlow"] = Command{Flag: vanish, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Games.VanishLeaderboard(ctx, channel, false)
	}}

	// Customs tournament scoring.
	cust := func(c *db.Channel) bool { return c.Customs }
	t["!setmaps"] = Command{Flag: cust, Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if len(args) == 0 {
			return "Usage: !setmaps <count>", nil
		}
		count, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Sprintf("%s is not a valid map count.", args[0]), nil
		}
		return h.Customs.SetMapCount(ctx, channel, count)
	}}
	t["!setplacement"] = Command{Flag: cust, Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if len(args) == 0 {
			return "Usage: !setplacement <threshold multiplier ...>", nil
		}
		return h.Customs.SetMultipliers(ctx, channel, strings.Join(args, " "))
	}}
	t["!addmap"] = Command{Flag: cust, Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if len(args) < 2 {
			return "Usage: !addmap <placement> <kills>", nil
		}
		placement, err1 := strconv.Atoi(args[0])
		kills, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return "Placement and kills must be numbers.", nil
		}
		return h.Customs.AddMap(ctx, channel, placement, kills)
	}}
	t["!removemap"] = Command{Flag: cust, Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Customs.RemoveMap(ctx, channel)
	}}
	t["!mc"] = Command{Flag: cust, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Customs.MapCount(ctx, channel)
	}}
	t["!resetmaps"] = Command{Flag: cust, Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Customs.Reset(ctx, channel)
	}}

	// !score serves customs when that flag is set, otherwise the 2v2 line.
	t["!score"] = Command{Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		switch {
		case entry == nil:
			return "", nil
		case entry.Customs:
			return h.Customs.Score(ctx, channel)
		case entry.TwoVTwo:
			return h.Board.Announce(ctx, channel, true)
		default:
			return "", nil
		}
	}}

	// Match stats.
	matches := func(c *db.Channel) bool { return c.Matches }
	t["!lastgame"] = Command{Flag: matches, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Stats.LastGame(ctx, d.Registry.Get(channel).ActiID)
	}}
	weekly := func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Stats.Weekly(ctx, d.Registry.Get(channel).ActiID)
	}
	t["!weekly"] = Command{Flag: matches, Handler: weekly}
	t["!lastgames"] = Command{Flag: matches, Handler: weekly}
	t["!daily"] = Command{Flag: matches, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		return h.Stats.Daily(ctx, entry.ActiID, entry.TZOffsetMin)
	}}
	t["!bombs"] = Command{Flag: matches, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		return h.Stats.Bombs(ctx, entry.ActiID, entry.TZOffsetMin)
	}}
	t["!wins"] = Command{Flag: matches, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		return h.Stats.Wins(ctx, entry.ActiID, entry.TZOffsetMin)
	}}
	t["!gulag"] = Command{Flag: matches, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		return h.Stats.Gulag(ctx, entry.ActiID, entry.TZOffsetMin)
	}}
	lifetime := func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		entry := d.Registry.Get(channel)
		sum, err := h.API.Lifetime(ctx, entry.ActiID, entry.Platform)
		if err != nil {
			return apiReply("", err)
		}
		return sum.String(), nil
	}
	t["!stats"] = Command{Flag: matches, Handler: lifetime}
	t["!kd"] = Command{Flag: matches, Handler: lifetime}
	t["!teammates"] = Command{Flag: matches, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Stats.Teammates(ctx, d.Registry.Get(channel).ActiID)
	}}
	modes := func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Stats.GameModes(ctx, d.Registry.Get(channel).ActiID)
	}
	t["!modes"] = Command{Flag: matches, Handler: modes}
	t["!gamemodes"] = Command{Flag: matches, Handler: modes}

	// Home-channel moderation relays and arbitrary player lookup.
	t["!check"] = Command{Perm: PermModOrVIP, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if channel != h.HomeChannel || len(args) == 0 {
			return "", nil
		}
		sum, err := h.API.Lifetime(ctx, strings.Join(args, " "), "uno")
		if err != nil {
			return apiReply("", err)
		}
		return sum.String(), nil
	}}
	for _, relay := range []string{"timeout", "untimeout", "ban", "unban"} {
		relay := relay
		t["!"+relay] = Command{Perm: PermModOrVIP, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
			if channel != h.HomeChannel || len(args) == 0 {
				return "", nil
			}
			return "/" + relay + " " + strings.Join(args, " "), nil
		}}
	}

	// Duels.
	duels := func(c *db.Channel) bool { return c.Duels }
	t["!duel"] = Command{Flag: duels, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		target := ""
		if len(args) > 0 {
			target = strings.TrimPrefix(args[0], "@")
		}
		return h.Duels.Challenge(channel, displayOrLogin(sp), target), nil
	}}
	t["!accept"] = Command{Flag: duels, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Duels.Accept(ctx, channel, displayOrLogin(sp))
	}}
	t["!reject"] = Command{Flag: duels, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Duels.Reject(channel, displayOrLogin(sp)), nil
	}}
	t["!cancel"] = Command{Flag: duels, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Duels.Cancel(channel, displayOrLogin(sp)), nil
	}}
	t["!duelscore"] = Command{Flag: duels, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		return h.Duels.Score(ctx, channel, displayOrLogin(sp))
	}}

	// Administrative pause. While paused, only the operator gets through the
	// dispatcher, so !resume is effectively operator-only.
	t["!pause"] = Command{Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if err := d.Registry.SetFlag(ctx, channel, "paused", true); err != nil {
			return "", err
		}
		h.Announcer.Pause(channel)
		return "Bot paused.", nil
	}}
	t["!resume"] = Command{Perm: PermModerator, Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if err := d.Registry.SetFlag(ctx, channel, "paused", false); err != nil {
			return "", err
		}
		h.Announcer.Resume(channel)
		return "Bot resumed.", nil
	}}

	// Owner opt-out: drop the persisted row, the registry entry, and the
	// chat membership together.
	t["!leave"] = Command{Handler: func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error) {
		if sp.Username != channel && sp.Username != d.Operator {
			return "", nil
		}
		if err := d.Registry.Remove(ctx, channel); err != nil {
			return "", err
		}
		d.Say(channel, "Bye!")
		if h.Part != nil {
			h.Part(channel)
		}
		return "", nil
	}}

	return t
}
