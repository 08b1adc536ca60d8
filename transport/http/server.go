package http

import (
	"net"
	"net/http"
	"strings"

	"git.dzz.com/wisegin/library/work"
	"git.dzz.com/wisegin/log"
)

const (
	// InjectName identifies the strategy to the host framework.
	InjectName = "wise-gin"

	// DefaultName is the server name used when the caller sets none.
	DefaultName = "wise-app"
)

// verbs maps framework verbs to engine verbs; unlisted verbs pass through.
var verbs = map[string]string{
	"delete":  "del",
	"options": "opts",
}

// Option configures New.
type Option func(*serverOptions)

type serverOptions struct {
	engine  string
	factory EngineFactory
}

// WithEngine selects a registered engine by name.
func WithEngine(name string) Option {
	return func(o *serverOptions) {
		o.engine = name
	}
}

// WithEngineFactory builds the engine with factory, bypassing the registry.
func WithEngineFactory(factory EngineFactory) Option {
	return func(o *serverOptions) {
		o.factory = factory
	}
}

// Server adapts an Engine to the Strategy surface.
type Server struct {
	inst Engine
}

// New builds the engine from cfg immediately. A nil cfg is the zero Config.
func New(cfg *Config, opts ...Option) (*Server, error) {
	o := serverOptions{engine: DefaultEngine}
	for _, opt := range opts {
		opt(&o)
	}
	factory := o.factory
	if factory == nil {
		var err error
		if factory, err = getEngine(o.engine); err != nil {
			return nil, err
		}
	}

	var c Config
	if cfg != nil {
		c = *cfg
	}
	inst, err := factory(Config{
		Certificate:        c.Certificate,
		Formatters:         c.Formatters,
		HandleUpgrades:     c.HandleUpgrades,
		HTTPSServerOptions: c.HTTPSServerOptions,
		Key:                c.Key,
		Log:                c.Log,
		Name:               c.Name,
		Spdy:               c.Spdy,
		Version:            c.Version,
	})
	if err != nil {
		return nil, err
	}
	return &Server{inst: inst}, nil
}

// Name returns InjectName.
func (s *Server) Name() string { return InjectName }

// AddRoute registers fn for method and pattern.
//
// A failing fn is reported twice: to next, so error middleware sees it,
// and as the returned error of the engine handler.
func (s *Server) AddRoute(method, pattern string, fn HandlerFunc) {
	verb := strings.ToLower(method)
	if v, ok := verbs[verb]; ok {
		verb = v
	}

	s.GetServer().Handle(verb, pattern, func(req *http.Request, res Response, next Next) error {
		if err := fn(req, res); err != nil {
			next(err)
			return err
		}
		next(nil)
		return nil
	})
	log.Debugf("route added [%s %s]", verb, pattern)
}

// Close closes the engine without draining in-flight requests.
func (s *Server) Close() Strategy {
	if err := s.GetServer().Close(); err != nil {
		log.Warnf("%s close: %v", InjectName, err)
	}
	return s
}

// GetRawServer returns the net/http server held by the engine.
func (s *Server) GetRawServer() *http.Server {
	return s.inst.Raw()
}

// GetServer returns the engine.
func (s *Server) GetServer() Engine {
	return s.inst
}

// OutputHandler sends body with code on res.
func (s *Server) OutputHandler(code int, body any, _ *http.Request, res Response) Strategy {
	res.Send(code, body)
	return s
}

// Start binds hostname:port. The returned future settles once with the
// bound address or the engine's listen error.
func (s *Server) Start(port int, hostname string, backlog int) *work.Future[net.Addr] {
	fut := work.NewFuture[net.Addr]()
	s.GetServer().Listen(port, hostname, backlog, func(err error, addr net.Addr) {
		if err != nil {
			fut.Reject(err)
			return
		}
		fut.Resolve(addr)
	})
	return fut
}

// UncaughtException registers fn for requests whose processing panicked.
func (s *Server) UncaughtException(fn ExceptionFunc) Strategy {
	s.GetServer().OnUncaughtException(func(req *http.Request, res Response, _ RouteInfo, err error) {
		fn(req, res, err)
	})
	return s
}

// Use forwards handlers to the engine middleware chain.
func (s *Server) Use(handlers ...Handler) Strategy {
	s.GetServer().Use(handlers...)
	return s
}

var _ Strategy = (*Server)(nil)
