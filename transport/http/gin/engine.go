// Package gin provides the gin-backed Engine.
// All gin-specific code lives here so the adapter stays framework neutral.
package gin

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-version"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"git.dzz.com/wisegin/library/event"
	"git.dzz.com/wisegin/log"
	httpserver "git.dzz.com/wisegin/transport/http"
)

// Name is the registry name of this engine.
const Name = httpserver.DefaultEngine

func init() {
	httpserver.RegisterEngine(Name, New)
}

// exception is the payload of the uncaught exception event.
type exception struct {
	req   *http.Request
	res   httpserver.Response
	route httpserver.RouteInfo
	err   error
}

// Engine is the gin implementation of httpserver.Engine.
type Engine struct {
	router     *gin.Engine
	srv        *http.Server
	log        *zap.Logger
	version    *version.Version
	upgrader   *websocket.Upgrader
	formatters map[string]httpserver.Formatter
	offers     []string
	uncaught   *event.Emitter[exception]

	mu       sync.Mutex
	listener net.Listener
}

// New builds the gin router and its net/http server from cfg.
func New(cfg httpserver.Config) (httpserver.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Log
	if logger == nil {
		logger = log.Logger()
	}
	if cfg.Name != "" {
		logger = logger.With(zap.String("server", cfg.Name))
	}

	tlsConf, err := buildTLS(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		router:   gin.New(),
		log:      logger,
		uncaught: event.NewEmitter[exception]("uncaughtException"),
	}
	if cfg.Version != "" {
		if e.version, err = version.NewVersion(cfg.Version); err != nil {
			return nil, fmt.Errorf("gin: invalid version %q: %w", cfg.Version, err)
		}
	}
	if cfg.HandleUpgrades {
		e.upgrader = &websocket.Upgrader{}
	}
	e.formatters = lo.PickBy(lo.Assign(defaultFormatters(), cfg.Formatters),
		func(_ string, f httpserver.Formatter) bool { return f != nil })
	e.offers = offers(e.formatters)

	e.router.HandleMethodNotAllowed = true
	e.router.Use(e.accessLog, e.recovery(), e.respondErrors)
	if cfg.Name != "" {
		e.router.Use(serverHeader(cfg.Name))
	}
	if e.version != nil {
		e.router.Use(e.checkVersion)
	}

	e.srv = &http.Server{
		Handler:   e.router,
		TLSConfig: tlsConf,
		ErrorLog:  zap.NewStdLog(logger),
	}
	switch {
	case cfg.Spdy && tlsConf != nil:
		if err := http2.ConfigureServer(e.srv, &http2.Server{}); err != nil {
			return nil, fmt.Errorf("gin: configure http2: %w", err)
		}
	case cfg.Spdy:
		e.srv.Handler = h2c.NewHandler(e.router, &http2.Server{})
	case tlsConf != nil:
		e.srv.TLSNextProto = make(map[string]func(*http.Server, *tls.Conn, http.Handler))
	}
	return e, nil
}

// method resolves an engine verb to an HTTP method.
func method(verb string) string {
	switch verb {
	case "del":
		return http.MethodDelete
	case "opts":
		return http.MethodOptions
	default:
		return strings.ToUpper(verb)
	}
}

// Handle registers handlers for verb and pattern.
// Invalid verbs or patterns panic inside gin.
func (e *Engine) Handle(verb, pattern string, handlers ...httpserver.Handler) {
	e.router.Handle(method(verb), pattern, e.wrapAll(handlers)...)
}

// Use appends handlers to the global chain. Routes registered before
// the call do not see them.
func (e *Engine) Use(handlers ...httpserver.Handler) {
	e.router.Use(e.wrapAll(handlers)...)
}

func (e *Engine) wrapAll(handlers []httpserver.Handler) []gin.HandlerFunc {
	return lo.Map(handlers, func(h httpserver.Handler, _ int) gin.HandlerFunc {
		return e.wrap(h)
	})
}

// wrap converts a Handler to gin.HandlerFunc. Only the first next call
// counts; returning without calling next stops the chain.
func (e *Engine) wrap(h httpserver.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := func(err error) {
			if called {
				return
			}
			called = true
			if err != nil {
				_ = c.Error(err)
				c.Abort()
				return
			}
			c.Next()
		}
		if err := h(c.Request, e.response(c), next); err != nil {
			e.log.Debug("handler returned error",
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Error(err))
		}
		if !called {
			c.Abort()
		}
	}
}

// Listen binds hostname:port and serves in the background.
func (e *Engine) Listen(port int, hostname string, backlog int, cb httpserver.ListenFunc) {
	ln, err := net.Listen("tcp", net.JoinHostPort(hostname, strconv.Itoa(port)))
	if err != nil {
		cb(err, nil)
		return
	}
	if err = setBacklog(ln, backlog); err != nil {
		_ = ln.Close()
		cb(err, nil)
		return
	}

	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	go e.serve(ln)
	cb(nil, ln.Addr())
}

func (e *Engine) serve(ln net.Listener) {
	var err error
	if e.srv.TLSConfig != nil {
		err = e.srv.ServeTLS(ln, "", "")
	} else {
		err = e.srv.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.log.Error("serve failed", zap.String("addr", ln.Addr().String()), zap.Error(err))
	}
}

// Close closes the listener and all connections immediately.
func (e *Engine) Close() error {
	err := e.srv.Close()

	e.mu.Lock()
	ln := e.listener
	e.mu.Unlock()
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
			err = cerr
		}
	}
	return err
}

// OnUncaughtException registers fn for panics raised while handling requests.
func (e *Engine) OnUncaughtException(fn httpserver.ExceptionListener) {
	e.uncaught.On(func(x exception) {
		fn(x.req, x.res, x.route, x.err)
	})
}

// Raw returns the net/http server.
func (e *Engine) Raw() *http.Server {
	return e.srv
}

// Router returns the gin router for callers that need gin directly.
func (e *Engine) Router() *gin.Engine {
	return e.router
}

var _ httpserver.Engine = (*Engine)(nil)
