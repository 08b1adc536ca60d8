package http

import (
	"context"
	"net"
	"strconv"
	"sync"

	"git.dzz.com/wisegin/log"
	"git.dzz.com/wisegin/transport"
)

// Runner drives a Strategy from the application lifecycle.
type Runner struct {
	strategy Strategy
	port     int
	hostname string
	backlog  int

	mu   sync.Mutex
	addr net.Addr
}

// NewRunner binds s to an address for transport.Server use.
func NewRunner(s Strategy, port int, hostname string, backlog int) *Runner {
	return &Runner{
		strategy: s,
		port:     port,
		hostname: hostname,
		backlog:  backlog,
	}
}

// Start waits for the strategy to bind or for ctx to end.
func (r *Runner) Start(ctx context.Context) error {
	addr, err := r.strategy.Start(r.port, r.hostname, r.backlog).WaitCtx(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.addr = addr
	r.mu.Unlock()
	log.Infof("[HTTP] server listening on: %s", addr)
	return nil
}

// Stop closes the strategy.
func (r *Runner) Stop(_ context.Context) error {
	log.Infof("[HTTP] server stopping [%s]", net.JoinHostPort(r.hostname, strconv.Itoa(r.port)))
	r.strategy.Close()
	return nil
}

// Addr is the bound address, nil before Start succeeds.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

var _ transport.Server = (*Runner)(nil)
