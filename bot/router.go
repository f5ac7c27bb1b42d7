package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/zhekler/trackbot/db"
	"github.com/zhekler/trackbot/telemetry"
)

// Permission is the capability a command demands from the speaker.
type Permission int

const (
	PermAnyone Permission = iota
	PermSubscriber
	PermModerator // moderator or the channel owner
	PermModOrVIP  // moderator, owner, or designated VIP
	PermOperator  // the bot operator only
)

// Speaker describes who typed the line, from the chat transport's tags.
type Speaker struct {
	Username    string
	DisplayName string
	IsMod       bool
	IsSub       bool
}

// Command is one row of the declarative command table.
type Command struct {
	// Flag gates the command on a channel feature; nil means always available.
	Flag func(*db.Channel) bool
	Perm Permission
	// Window overrides the default per-channel cooldown.
	Window time.Duration
	// UserWindow adds a per-user cooldown on top, used by the games.
	UserWindow time.Duration
	Handler    func(ctx context.Context, d *Dispatcher, channel string, sp Speaker, args []string) (string, error)
}

// Dispatcher gates and routes chat lines. Unauthorized or throttled use is
// invisible: the drop paths never reply.
type Dispatcher struct {
	Registry  *Registry
	Cooldowns *Cooldowns
	Commands  map[string]Command
	Operator  string
	IsVIP     func(login string) bool
	Say       func(channel, text string)
	Log       *slog.Logger

	// DefaultWindow is the per-channel-per-command cooldown applied when a
	// command does not set its own.
	DefaultWindow time.Duration
}

const prefix = "!"

// Dispatch routes one chat line. It never returns an error: handler
// failures are logged and swallowed so the chat loop cannot die.
func (d *Dispatcher) Dispatch(ctx context.Context, channel string, sp Speaker, text string) {
	if !strings.HasPrefix(text, prefix) {
		return
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	entry := d.Registry.Get(channel)
	if entry == nil {
		return
	}
	if entry.Paused && sp.Username != d.Operator {
		telemetry.DropCommand("paused")
		return
	}

	cmd, ok := d.Commands[name]
	if !ok {
		return
	}

	// The cooldown is armed before the handler runs so a slow handler
	// cannot be re-entered while it waits on I/O.
	window := cmd.Window
	if window == 0 {
		window = d.DefaultWindow
	}
	if !d.Cooldowns.TryChannel(channel, name, window) {
		telemetry.DropCommand("cooldown")
		return
	}

	if cmd.Flag != nil && !cmd.Flag(entry) {
		telemetry.DropCommand("flag")
		return
	}
	if !d.permitted(cmd.Perm, channel, sp) {
		telemetry.DropCommand("permission")
		return
	}
	if cmd.UserWindow > 0 && !d.Cooldowns.TryUser(sp.Username, name, cmd.UserWindow) {
		telemetry.DropCommand("user_cooldown")
		return
	}

	telemetry.CountDispatch()
	d.run(ctx, name, cmd, channel, sp, args)
}

func (d *Dispatcher) run(ctx context.Context, name string, cmd Command, channel string, sp Speaker, args []string) {
	defer func() {
		if r := recover(); r != nil {
			d.log().Error("command handler panicked",
				slog.String("command", name), slog.String("channel", channel), slog.Any("panic", r))
		}
	}()
	reply, err := cmd.Handler(ctx, d, channel, sp, args)
	if err != nil {
		d.log().Error("command handler failed",
			slog.String("command", name), slog.String("channel", channel), slog.Any("err", err))
		return
	}
	if reply != "" && d.Say != nil {
		d.Say(channel, reply)
	}
}

func (d *Dispatcher) permitted(perm Permission, channel string, sp Speaker) bool {
	switch perm {
	case PermAnyone:
		return true
	case PermSubscriber:
		return sp.IsSub || sp.IsMod || sp.Username == channel
	case PermModerator:
		return sp.IsMod || sp.Username == channel
	case PermModOrVIP:
		return sp.IsMod || sp.Username == channel || (d.IsVIP != nil && d.IsVIP(sp.Username))
	case PermOperator:
		return sp.Username == d.Operator
	default:
		return false
	}
}

func (d *Dispatcher) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
