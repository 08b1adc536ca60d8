package wisegin

import (
	"context"
	"os"
	"time"

	"git.dzz.com/wisegin/library/work"
	"git.dzz.com/wisegin/transport"
)

// Option is an application option.
type Option func(o *options)

// options is an application options.
type options struct {
	id       string
	name     string
	version  string
	metadata map[string]string

	ctx  context.Context
	sigs []os.Signal

	stopTimeout time.Duration
	servers     []transport.Server
	loop        work.ITaskLoop
}

// ID with service id.
func ID(id string) Option {
	return func(o *options) { o.id = id }
}

// Name with service name.
func Name(name string) Option {
	return func(o *options) { o.name = name }
}

// Version with service version.
func Version(version string) Option {
	return func(o *options) { o.version = version }
}

// Metadata with service metadata.
func Metadata(md map[string]string) Option {
	return func(o *options) { o.metadata = md }
}

// Context with service context.
func Context(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Signal with exit signals.
func Signal(sigs ...os.Signal) Option {
	return func(o *options) { o.sigs = sigs }
}

// StopTimeout with app stop timeout.
func StopTimeout(t time.Duration) Option {
	return func(o *options) { o.stopTimeout = t }
}

// Server with transport servers.
func Server(srv ...transport.Server) Option {
	return func(o *options) { o.servers = srv }
}

// Loop with the task loop servers are stopped on.
func Loop(l work.ITaskLoop) Option {
	return func(o *options) { o.loop = l }
}
