package http

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"git.dzz.com/wisegin/library/work"
)

// ErrUpgradesDisabled is returned by Response.Upgrade when the server
// was built without HandleUpgrades.
var ErrUpgradesDisabled = errors.New("http: protocol upgrades are disabled")

// Response is the writer handed to handlers.
type Response interface {
	http.ResponseWriter

	// Send writes body with the status code using the negotiated formatter.
	Send(code int, body any)

	// Upgrade hijacks the connection for a websocket session.
	Upgrade() (*websocket.Conn, error)
}

// Next continues the engine pipeline. A non-nil err diverts the request
// to error handling instead.
type Next func(err error)

// Handler is the engine-level route and middleware callback.
type Handler func(req *http.Request, res Response, next Next) error

// HandlerFunc is a framework route handler. It blocks until the request
// is handled and reports failure through the returned error.
type HandlerFunc func(req *http.Request, res Response) error

// ExceptionFunc receives requests whose processing panicked.
type ExceptionFunc func(req *http.Request, res Response, err error)

// RouteInfo describes the route that was executing when a request failed.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// ExceptionListener is the engine-level uncaught exception callback.
type ExceptionListener func(req *http.Request, res Response, route RouteInfo, err error)

// ListenFunc is invoked exactly once with the bind result.
type ListenFunc func(err error, addr net.Addr)

// Formatter serializes a response body for one content type.
type Formatter func(body any) ([]byte, error)

// Config is forwarded verbatim to the engine factory. Zero fields are unset.
type Config struct {
	Certificate        []byte
	Formatters         map[string]Formatter
	HandleUpgrades     bool
	HTTPSServerOptions *tls.Config
	Key                []byte
	Log                *zap.Logger
	Name               string
	Spdy               bool
	Version            string
}

// Engine is the call contract of the underlying server library.
// Verb names are library names ("get", "del", "opts", ...).
type Engine interface {
	Handle(verb, pattern string, handlers ...Handler)
	Use(handlers ...Handler)
	Listen(port int, hostname string, backlog int, cb ListenFunc)
	Close() error
	OnUncaughtException(fn ExceptionListener)
	Raw() *http.Server
}

// Strategy is the server surface a framework drives.
type Strategy interface {
	AddRoute(method, pattern string, fn HandlerFunc)
	Use(handlers ...Handler) Strategy
	Start(port int, hostname string, backlog int) *work.Future[net.Addr]
	Close() Strategy
	GetServer() Engine
	GetRawServer() *http.Server
	OutputHandler(code int, body any, req *http.Request, res Response) Strategy
	UncaughtException(fn ExceptionFunc) Strategy
}
