package wisegin

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.dzz.com/wisegin/library/work"
	"git.dzz.com/wisegin/log"
)

// AppInfo is application context value.
type AppInfo interface {
	ID() string
	Name() string
	Version() string
	Metadata() map[string]string
}

// App is an application components lifecycle manager.
type App struct {
	opts   options
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New create an application lifecycle manager.
func New(opts ...Option) *App {
	o := options{
		ctx:         context.Background(),
		sigs:        []os.Signal{syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT},
		stopTimeout: 10 * time.Second,
	}
	if id, err := uuid.NewUUID(); err == nil {
		o.id = id.String()
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loop == nil {
		o.loop = work.NewAntsLoop(work.WithSize(max(len(o.servers), 1)))
	}
	ctx, cancel := context.WithCancel(o.ctx)
	return &App{
		ctx:    ctx,
		cancel: cancel,
		opts:   o,
	}
}

// ID returns app instance id.
func (a *App) ID() string { return a.opts.id }

// Name returns service name.
func (a *App) Name() string { return a.opts.name }

// Version returns app version.
func (a *App) Version() string { return a.opts.version }

// Metadata returns service metadata.
func (a *App) Metadata() map[string]string { return a.opts.metadata }

// Run starts every server and blocks until a signal arrives, the context
// ends, or a server fails to start.
func (a *App) Run() error {
	if err := a.opts.loop.Start(); err != nil {
		return err
	}
	ctx := NewContext(a.ctx, a)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		eg.Go(func() error {
			return srv.Start(egCtx)
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.Join(err, a.Stop())
	}
	log.Infof("app started [id:%s name:%s version:%s servers:%d]", a.ID(), a.Name(), a.Version(), len(a.opts.servers))

	c := make(chan os.Signal, 1)
	signal.Notify(c, a.opts.sigs...)
	defer signal.Stop(c)
	select {
	case <-ctx.Done():
	case sig := <-c:
		log.Infof("app received signal %s", sig)
	}
	return a.Stop()
}

// Stop stops every server on the task loop, bounded by the stop timeout.
// Only the first call does work.
func (a *App) Stop() (err error) {
	a.once.Do(func() {
		ctx, cancel := context.WithTimeout(NewContext(context.Background(), a), a.opts.stopTimeout)
		defer cancel()

		errs := make([]error, len(a.opts.servers))
		var wg sync.WaitGroup
		for i, srv := range a.opts.servers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = a.opts.loop.PostAndWaitCtx(ctx, func() error { return srv.Stop(ctx) })
			}()
		}
		wg.Wait()

		a.cancel()
		a.opts.loop.Stop()
		err = errors.Join(errs...)
		log.Infof("app stopped [id:%s]", a.ID())
	})
	return err
}

type appKey struct{}

// NewContext returns a new Context that carries value.
func NewContext(ctx context.Context, s AppInfo) context.Context {
	return context.WithValue(ctx, appKey{}, s)
}

// FromContext returns the Transport value stored in ctx, if any.
func FromContext(ctx context.Context) (s AppInfo, ok bool) {
	s, ok = ctx.Value(appKey{}).(AppInfo)
	return
}
