// Package config loads process options from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"git.dzz.com/wisegin/log"
	httpserver "git.dzz.com/wisegin/transport/http"
)

// EnvPrefix prefixes environment overrides, e.g. WISEGIN_SERVER_PORT.
const EnvPrefix = "WISEGIN"

// Options is the root configuration.
type Options struct {
	Server *ServerOptions `json:"server" mapstructure:"server"`
	Log    *LogOptions    `json:"log" mapstructure:"log"`
}

// ServerOptions configures the HTTP strategy and where it listens.
type ServerOptions struct {
	Name           string `json:"name" mapstructure:"name"`
	Version        string `json:"version" mapstructure:"version"`
	Engine         string `json:"engine" mapstructure:"engine"`
	Host           string `json:"host" mapstructure:"host"`
	Port           int    `json:"port" mapstructure:"port"`
	Backlog        int    `json:"backlog" mapstructure:"backlog"`
	CertFile       string `json:"cert-file" mapstructure:"cert-file"`
	KeyFile        string `json:"key-file" mapstructure:"key-file"`
	HandleUpgrades bool   `json:"handle-upgrades" mapstructure:"handle-upgrades"`
	Spdy           bool   `json:"spdy" mapstructure:"spdy"`
}

// LogOptions configures the process logger.
type LogOptions struct {
	Mode  string `json:"mode" mapstructure:"mode"`
	Level string `json:"level" mapstructure:"level"`
	Dir   string `json:"dir" mapstructure:"dir"`
}

// NewOptions returns Options with defaults.
func NewOptions() *Options {
	return &Options{
		Server: &ServerOptions{
			Name:    httpserver.DefaultName,
			Engine:  httpserver.DefaultEngine,
			Host:    "0.0.0.0",
			Port:    8100,
			Backlog: 511,
		},
		Log: &LogOptions{
			Mode:  "dev",
			Level: "info",
			Dir:   "logs",
		},
	}
}

// AddFlags adds flags for all options to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	s := o.Server
	fs.StringVar(&s.Name, "server.name", s.Name, "Server name sent in the Server header.")
	fs.StringVar(&s.Version, "server.version", s.Version, "Server version matched against Accept-Version.")
	fs.StringVar(&s.Engine, "server.engine", s.Engine, "Registered engine backing the server.")
	fs.StringVar(&s.Host, "server.host", s.Host, "Hostname or IP to listen on.")
	fs.IntVar(&s.Port, "server.port", s.Port, "Port to listen on.")
	fs.IntVar(&s.Backlog, "server.backlog", s.Backlog, "Accept queue depth, 0 keeps the system default.")
	fs.StringVar(&s.CertFile, "server.cert-file", s.CertFile, "PEM certificate file, enables TLS with server.key-file.")
	fs.StringVar(&s.KeyFile, "server.key-file", s.KeyFile, "PEM private key file.")
	fs.BoolVar(&s.HandleUpgrades, "server.handle-upgrades", s.HandleUpgrades, "Allow websocket upgrades.")
	fs.BoolVar(&s.Spdy, "server.spdy", s.Spdy, "Serve HTTP/2 (h2c without TLS).")

	l := o.Log
	fs.StringVar(&l.Mode, "log.mode", l.Mode, "Log mode: dev or prod.")
	fs.StringVar(&l.Level, "log.level", l.Level, "Minimum log level.")
	fs.StringVar(&l.Dir, "log.dir", l.Dir, "Directory for prod log files.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	var errs []error
	if o.Server == nil {
		return append(errs, errors.New("server options are required"))
	}
	if o.Server.Port < 0 || o.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", o.Server.Port))
	}
	if o.Server.Backlog < 0 {
		errs = append(errs, errors.New("server.backlog must not be negative"))
	}
	if (o.Server.CertFile == "") != (o.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert-file and server.key-file must be set together"))
	}
	if o.Server.Engine == "" {
		errs = append(errs, errors.New("server.engine cannot be empty"))
	}
	return errs
}

// Load reads path (optional), WISEGIN_* environment and the flags in fs
// over the defaults. Flags win over environment, environment over file.
func Load(path string, fs *pflag.FlagSet) (*Options, error) {
	o := NewOptions()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, val := range map[string]any{
		"server.name":            o.Server.Name,
		"server.version":         o.Server.Version,
		"server.engine":          o.Server.Engine,
		"server.host":            o.Server.Host,
		"server.port":            o.Server.Port,
		"server.backlog":         o.Server.Backlog,
		"server.cert-file":       o.Server.CertFile,
		"server.key-file":        o.Server.KeyFile,
		"server.handle-upgrades": o.Server.HandleUpgrades,
		"server.spdy":            o.Server.Spdy,
		"log.mode":               o.Log.Mode,
		"log.level":              o.Log.Level,
		"log.dir":                o.Log.Dir,
	} {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	if err := v.Unmarshal(o); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := o.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return o, nil
}

// ServerConfig builds the strategy config. This is where an empty name
// becomes DefaultName; http.New itself forwards names verbatim.
func (o *ServerOptions) ServerConfig() (*httpserver.Config, error) {
	cfg := &httpserver.Config{
		Name:           o.Name,
		Version:        o.Version,
		HandleUpgrades: o.HandleUpgrades,
		Spdy:           o.Spdy,
		Log:            log.Logger(),
	}
	if cfg.Name == "" {
		cfg.Name = httpserver.DefaultName
	}
	if o.CertFile != "" {
		var err error
		if cfg.Certificate, err = os.ReadFile(o.CertFile); err != nil {
			return nil, fmt.Errorf("read certificate: %w", err)
		}
		if cfg.Key, err = os.ReadFile(o.KeyFile); err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
	}
	return cfg, nil
}

// LogConfig builds the logger config for app.
func (o *LogOptions) LogConfig(app, instance string) *log.Config {
	return &log.Config{
		Mode:     log.ParseMode(o.Mode),
		Level:    o.Level,
		App:      app,
		Instance: instance,
		Dir:      o.Dir,
	}
}
