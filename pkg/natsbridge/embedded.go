package natsbridge

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedOptions configures an in-process NATS server
type EmbeddedOptions struct {
	Host string
	// Port -1 picks a random free port
	Port         int
	ReadyTimeout time.Duration
}

// RunEmbedded starts an in-process NATS server and waits until it accepts
// clients. Callers own Shutdown.
func RunEmbedded(opts EmbeddedOptions) (*server.Server, error) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = -1
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}

	ns, err := server.NewServer(&server.Options{
		Host:   opts.Host,
		Port:   opts.Port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(opts.ReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready after %s", opts.ReadyTimeout)
	}
	return ns, nil
}
