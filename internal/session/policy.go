package session

import (
	"time"

	"github.com/openclaw/agent-console-go/internal/config"
)

// ReconnectPolicy decides how long to wait before reconnect attempt number
// attempt (zero-based). The counter resets on every successful connection.
type ReconnectPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay waits the same interval between every attempt.
type FixedDelay time.Duration

func (d FixedDelay) NextDelay(int) time.Duration {
	return time.Duration(d)
}

// Backoff doubles the base delay per attempt, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b Backoff) NextDelay(attempt int) time.Duration {
	delay := b.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			return b.Max
		}
	}
	if delay > b.Max {
		return b.Max
	}
	return delay
}

// DefaultReconnect is the flat three second policy.
func DefaultReconnect() ReconnectPolicy {
	return FixedDelay(config.ReconnectDelay)
}
