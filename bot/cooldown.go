package bot

import (
	"sync"
	"time"
)

// Cooldowns tracks per-channel-per-command and per-user throttle expiries.
// Entries live for the process only; a restart resets all cooldowns.
type Cooldowns struct {
	now func() time.Time

	mu      sync.Mutex
	channel map[string]time.Time // channel + "\x00" + command
	user    map[string]time.Time // user + "\x00" + command
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{
		now:     time.Now,
		channel: make(map[string]time.Time),
		user:    make(map[string]time.Time),
	}
}

// TryChannel reports whether the channel/command pair is off cooldown and,
// when it is, immediately arms the next expiry. Arming before the handler
// runs is what keeps a slow handler from being re-entered.
func (c *Cooldowns) TryChannel(channel, command string, window time.Duration) bool {
	key := channel + "\x00" + command
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Before(c.channel[key]) {
		return false
	}
	c.channel[key] = now.Add(window)
	return true
}

// TryUser is TryChannel keyed by user instead of channel, for the games
// that throttle each player globally.
func (c *Cooldowns) TryUser(user, command string, window time.Duration) bool {
	key := user + "\x00" + command
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Before(c.user[key]) {
		return false
	}
	c.user[key] = now.Add(window)
	return true
}
