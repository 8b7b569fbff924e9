package health

import (
	"context"
	"fmt"
)

// Pinger is anything that can verify its connection, such as a SQL store
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck creates a health check from a Pinger
func PingCheck(p Pinger) Checker {
	return func(ctx context.Context) error {
		if p == nil {
			return &Error{Message: "not configured"}
		}
		if err := p.Ping(ctx); err != nil {
			return &Error{Message: "ping failed: " + err.Error()}
		}
		return nil
	}
}

// StatusCheck reports down while connected returns false, as for a
// reconnecting NATS client
func StatusCheck(name string, connected func() bool) Checker {
	return func(ctx context.Context) error {
		if !connected() {
			return &Error{Message: fmt.Sprintf("%s disconnected", name)}
		}
		return nil
	}
}
