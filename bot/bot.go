package bot

import (
	"context"
	"fmt"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/zhekler/trackbot/telemetry"
)

// Bot owns the chat connection and feeds incoming lines to the dispatcher.
type Bot struct {
	Client     *twitch.Client
	Dispatcher *Dispatcher
	Registry   *Registry
	Log        *slog.Logger
}

// New builds the chat client and hooks the dispatcher into it.
func New(username, oauth string, dispatcher *Dispatcher, registry *Registry) *Bot {
	b := &Bot{
		Client:     twitch.NewClient(username, oauth),
		Dispatcher: dispatcher,
		Registry:   registry,
		Log:        slog.Default().With(slog.String("component", "bot")),
	}

	b.Client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		sp := Speaker{
			Username:    msg.User.Name,
			DisplayName: msg.User.DisplayName,
			IsMod:       msg.User.Badges["moderator"] > 0 || msg.User.Badges["broadcaster"] > 0,
			IsSub:       msg.User.Badges["subscriber"] > 0 || msg.User.Badges["founder"] > 0,
		}
		b.Dispatcher.Dispatch(context.Background(), msg.Channel, sp, msg.Message)
	})

	b.Client.OnUserNoticeMessage(func(msg twitch.UserNoticeMessage) {
		b.handleUserNotice(msg)
	})

	return b
}

// handleUserNotice thanks subs and resubs in channels with the subs flag on.
func (b *Bot) handleUserNotice(msg twitch.UserNoticeMessage) {
	entry := b.Registry.Get(msg.Channel)
	if entry == nil || !entry.Subs {
		return
	}
	name := msg.User.DisplayName
	if name == "" {
		name = msg.User.Name
	}
	switch msg.MsgID {
	case "sub":
		b.Say(msg.Channel, fmt.Sprintf("%s Thank you for the sub, welcome in!", name))
	case "resub":
		months := msg.MsgParams["msg-param-cumulative-months"]
		b.Say(msg.Channel, fmt.Sprintf("%s Thank you for the %s month resub!", name, months))
	}
}

// Say sends a chat line.
func (b *Bot) Say(channel, text string) {
	b.Client.Say(channel, text)
}

// Part leaves a chat channel.
func (b *Bot) Part(channel string) {
	b.Client.Depart(channel)
}

// JoinAll joins every registry channel with the presence flag set and
// reports how many.
func (b *Bot) JoinAll() int {
	n := 0
	for _, name := range b.Registry.Channels() {
		entry := b.Registry.Get(name)
		if entry != nil && entry.Presence {
			b.Client.Join(name)
			n++
		}
	}
	if telemetry.JoinedChannelsGauge != nil {
		telemetry.JoinedChannelsGauge.Set(float64(n))
	}
	return n
}

// Run joins channels and blocks on the chat connection until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	joined := b.JoinAll()
	b.Log.Info("joining chat", slog.Int("channels", joined))

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := b.Client.Disconnect(); err != nil {
			b.Log.Warn("chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	if err := b.Client.Connect(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat connect: %w", err)
	}
	<-done
	return nil
}
