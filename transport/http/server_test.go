package http

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type route struct {
	verb     string
	pattern  string
	handlers []Handler
}

type listenCall struct {
	port     int
	hostname string
	backlog  int
}

// mockEngine records every call the adapter forwards.
type mockEngine struct {
	routes    []route
	uses      [][]Handler
	listens   []listenCall
	closes    int
	closeErr  error
	listeners []ExceptionListener
	raw       *http.Server

	listenErr  error
	listenAddr net.Addr
}

func (m *mockEngine) Handle(verb, pattern string, handlers ...Handler) {
	m.routes = append(m.routes, route{verb: verb, pattern: pattern, handlers: handlers})
}

func (m *mockEngine) Use(handlers ...Handler) {
	m.uses = append(m.uses, handlers)
}

func (m *mockEngine) Listen(port int, hostname string, backlog int, cb ListenFunc) {
	m.listens = append(m.listens, listenCall{port: port, hostname: hostname, backlog: backlog})
	cb(m.listenErr, m.listenAddr)
}

func (m *mockEngine) Close() error {
	m.closes++
	return m.closeErr
}

func (m *mockEngine) OnUncaughtException(fn ExceptionListener) {
	m.listeners = append(m.listeners, fn)
}

func (m *mockEngine) Raw() *http.Server { return m.raw }

// mockResponse records Send calls.
type mockResponse struct {
	*httptest.ResponseRecorder
	sends []sendCall
}

type sendCall struct {
	code int
	body any
}

func newMockResponse() *mockResponse {
	return &mockResponse{ResponseRecorder: httptest.NewRecorder()}
}

func (r *mockResponse) Send(code int, body any) {
	r.sends = append(r.sends, sendCall{code: code, body: body})
}

func (r *mockResponse) Upgrade() (*websocket.Conn, error) { return nil, ErrUpgradesDisabled }

// factoryRecorder captures the config the adapter forwards.
type factoryRecorder struct {
	calls  int
	config Config
	engine *mockEngine
}

func (f *factoryRecorder) factory(cfg Config) (Engine, error) {
	f.calls++
	f.config = cfg
	return f.engine, nil
}

func newTestServer(t *testing.T) (*Server, *mockEngine) {
	t.Helper()
	rec := &factoryRecorder{engine: &mockEngine{}}
	s, err := New(nil, WithEngineFactory(rec.factory))
	require.NoError(t, err)
	return s, rec.engine
}

// next records the continuation arguments.
type next struct {
	calls []error
}

func (n *next) fn(err error) { n.calls = append(n.calls, err) }

func TestNew(t *testing.T) {
	t.Run("nil config forwards zero config", func(t *testing.T) {
		rec := &factoryRecorder{engine: &mockEngine{}}
		s, err := New(nil, WithEngineFactory(rec.factory))
		require.NoError(t, err)
		require.Equal(t, 1, rec.calls)
		require.Equal(t, Config{}, rec.config)
		require.Same(t, rec.engine, s.GetServer())
	})

	t.Run("empty config forwards zero config", func(t *testing.T) {
		rec := &factoryRecorder{engine: &mockEngine{}}
		_, err := New(&Config{}, WithEngineFactory(rec.factory))
		require.NoError(t, err)
		require.Equal(t, 1, rec.calls)
		require.Equal(t, Config{}, rec.config)
	})

	t.Run("populated config is forwarded verbatim", func(t *testing.T) {
		rec := &factoryRecorder{engine: &mockEngine{}}
		tlsConf := &tls.Config{MinVersion: tls.VersionTLS12}
		logger := zap.NewNop()
		csv := Formatter(func(any) ([]byte, error) { return []byte("a,b"), nil })
		cfg := &Config{
			Certificate:        []byte("certificate"),
			Formatters:         map[string]Formatter{"text/csv": csv},
			HandleUpgrades:     true,
			HTTPSServerOptions: tlsConf,
			Key:                []byte("key"),
			Log:                logger,
			Name:               "name",
			Spdy:               true,
			Version:            "1.2.3",
		}
		_, err := New(cfg, WithEngineFactory(rec.factory))
		require.NoError(t, err)

		got := rec.config
		require.Equal(t, []byte("certificate"), got.Certificate)
		require.Len(t, got.Formatters, 1)
		out, err := got.Formatters["text/csv"](nil)
		require.NoError(t, err)
		require.Equal(t, []byte("a,b"), out)
		require.True(t, got.HandleUpgrades)
		require.Same(t, tlsConf, got.HTTPSServerOptions)
		require.Equal(t, []byte("key"), got.Key)
		require.Same(t, logger, got.Log)
		require.Equal(t, "name", got.Name)
		require.True(t, got.Spdy)
		require.Equal(t, "1.2.3", got.Version)
	})

	t.Run("factory error surfaces", func(t *testing.T) {
		e := errors.New("bad certificate")
		s, err := New(nil, WithEngineFactory(func(Config) (Engine, error) { return nil, e }))
		require.ErrorIs(t, err, e)
		require.Nil(t, s)
	})

	t.Run("registered engine is looked up by name", func(t *testing.T) {
		eng := &mockEngine{}
		RegisterEngine("mock", func(Config) (Engine, error) { return eng, nil })
		s, err := New(nil, WithEngine("mock"))
		require.NoError(t, err)
		require.Same(t, eng, s.GetServer())
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := New(nil, WithEngine("nope"))
		require.ErrorIs(t, err, ErrEngineNotFound)
	})

	t.Run("name", func(t *testing.T) {
		s, _ := newTestServer(t)
		require.Equal(t, "wise-gin", s.Name())
	})
}

func TestAddRoute(t *testing.T) {
	verbCases := []struct {
		method string
		verb   string
	}{
		{"options", "opts"},
		{"OPTIOnS", "opts"},
		{"delete", "del"},
		{"DELEtE", "del"},
		{"get", "get"},
		{"GET", "get"},
		{"Post", "post"},
		{"PATCH", "patch"},
	}
	for _, tc := range verbCases {
		t.Run("maps "+tc.method, func(t *testing.T) {
			s, eng := newTestServer(t)
			req := httptest.NewRequest(http.MethodGet, "/path/to/route", nil)
			res := newMockResponse()

			s.AddRoute(tc.method, "/path/to/route", func(r *http.Request, w Response) error {
				require.Same(t, req, r)
				require.Same(t, res, w)
				return nil
			})

			require.Len(t, eng.routes, 1)
			require.Equal(t, tc.verb, eng.routes[0].verb)
			require.Equal(t, "/path/to/route", eng.routes[0].pattern)
			require.Len(t, eng.routes[0].handlers, 1)

			n := &next{}
			err := eng.routes[0].handlers[0](req, res, n.fn)
			require.NoError(t, err)
			require.Equal(t, []error{nil}, n.calls)
		})
	}

	t.Run("failing handler signals next and returns the error", func(t *testing.T) {
		s, eng := newTestServer(t)
		e := errors.New("my error")
		s.AddRoute("GET", "/path/to/route", func(*http.Request, Response) error {
			return e
		})

		n := &next{}
		err := eng.routes[0].handlers[0](httptest.NewRequest(http.MethodGet, "/", nil), newMockResponse(), n.fn)
		require.Same(t, e, err)
		require.Len(t, n.calls, 1)
		require.Same(t, e, n.calls[0])
	})
}

func TestClose(t *testing.T) {
	s, eng := newTestServer(t)
	require.Same(t, s, s.Close())
	require.Equal(t, 1, eng.closes)

	eng.closeErr = errors.New("already closed")
	require.Same(t, s, s.Close())
	require.Equal(t, 2, eng.closes)
}

func TestGetServer(t *testing.T) {
	s, eng := newTestServer(t)
	require.Same(t, eng, s.GetServer())

	raw := &http.Server{}
	eng.raw = raw
	require.Same(t, raw, s.GetRawServer())
}

func TestOutputHandler(t *testing.T) {
	s, _ := newTestServer(t)
	res := newMockResponse()
	data := map[string]string{"hello": "world"}

	require.Same(t, s, s.OutputHandler(http.StatusCreated, data, httptest.NewRequest(http.MethodGet, "/", nil), res))
	require.Equal(t, []sendCall{{code: http.StatusCreated, body: data}}, res.sends)
}

func TestStart(t *testing.T) {
	t.Run("resolves with the listen result", func(t *testing.T) {
		s, eng := newTestServer(t)
		addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
		eng.listenAddr = addr

		got, err := s.Start(8080, "hostname", 12345).Wait()
		require.NoError(t, err)
		require.Same(t, addr, got)
		require.Equal(t, []listenCall{{port: 8080, hostname: "hostname", backlog: 12345}}, eng.listens)
	})

	t.Run("rejects with the listen error", func(t *testing.T) {
		s, eng := newTestServer(t)
		e := errors.New("err")
		eng.listenErr = e

		got, err := s.Start(9999, "address", 512).Wait()
		require.Same(t, e, err)
		require.Nil(t, got)
		require.Equal(t, []listenCall{{port: 9999, hostname: "address", backlog: 512}}, eng.listens)
	})

	t.Run("settles once", func(t *testing.T) {
		eng := &mockEngine{}
		s, err := New(nil, WithEngineFactory(func(Config) (Engine, error) { return &doubleListen{eng}, nil }))
		require.NoError(t, err)

		got, err := s.Start(1, "h", 1).Wait()
		require.NoError(t, err)
		require.Equal(t, "first", got.String())
	})
}

// doubleListen calls back twice to prove the future ignores the second call.
type doubleListen struct{ *mockEngine }

func (d *doubleListen) Listen(_ int, _ string, _ int, cb ListenFunc) {
	cb(nil, fakeAddr("first"))
	cb(errors.New("second"), nil)
}

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

func TestUncaughtException(t *testing.T) {
	s, eng := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := newMockResponse()
	e := errors.New("err")

	calls := 0
	fn := func(r *http.Request, w Response, err error) {
		calls++
		require.Same(t, req, r)
		require.Same(t, res, w)
		require.Same(t, e, err)
	}

	require.Same(t, s, s.UncaughtException(fn))
	require.Len(t, eng.listeners, 1)

	eng.listeners[0](req, res, RouteInfo{Method: "GET", Path: "/route"}, e)
	require.Equal(t, 1, calls)
}

func TestUse(t *testing.T) {
	s, eng := newTestServer(t)
	first := Handler(func(*http.Request, Response, Next) error { return nil })
	second := Handler(func(*http.Request, Response, Next) error { return errors.New("x") })

	require.Same(t, s, s.Use(first, second))
	require.Len(t, eng.uses, 1)
	require.Len(t, eng.uses[0], 2)
	require.NoError(t, eng.uses[0][0](nil, nil, nil))
	require.EqualError(t, eng.uses[0][1](nil, nil, nil), "x")
}
