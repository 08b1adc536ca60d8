package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"git.dzz.com/wisegin/log"
	httpserver "git.dzz.com/wisegin/transport/http"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	o, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, NewOptions(), o)
	require.Equal(t, httpserver.DefaultName, o.Server.Name)
	require.Equal(t, "gin", o.Server.Engine)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "wisegin.yaml", `
server:
  name: from-file
  port: 9000
  host: 127.0.0.1
  handle-upgrades: true
log:
  level: warn
`)
	t.Setenv("WISEGIN_SERVER_PORT", "9001")
	t.Setenv("WISEGIN_SERVER_VERSION", "2.0.0")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	NewOptions().AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--server.name=from-flag"}))

	o, err := Load(path, fs)
	require.NoError(t, err)
	require.Equal(t, "from-flag", o.Server.Name)
	require.Equal(t, 9001, o.Server.Port)
	require.Equal(t, "2.0.0", o.Server.Version)
	require.Equal(t, "127.0.0.1", o.Server.Host)
	require.True(t, o.Server.HandleUpgrades)
	require.Equal(t, "warn", o.Log.Level)
	require.Equal(t, 511, o.Server.Backlog)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	path := writeFile(t, "bad.yaml", `
server:
  port: 70000
  cert-file: only-cert.pem
`)
	_, err = Load(path, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.port 70000 out of range")
	require.Contains(t, err.Error(), "must be set together")
}

func TestValidate(t *testing.T) {
	require.Empty(t, NewOptions().Validate())
	require.Len(t, (&Options{}).Validate(), 1)

	o := NewOptions()
	o.Server.Backlog = -1
	o.Server.Engine = ""
	errs := o.Validate()
	require.Len(t, errs, 2)
	require.EqualError(t, errs[0], "server.backlog must not be negative")
}

func TestServerConfig(t *testing.T) {
	t.Run("empty name gets the default", func(t *testing.T) {
		cfg, err := (&ServerOptions{}).ServerConfig()
		require.NoError(t, err)
		require.Equal(t, httpserver.DefaultName, cfg.Name)
		require.NotNil(t, cfg.Log)
		require.Nil(t, cfg.Certificate)
	})

	t.Run("fields are copied", func(t *testing.T) {
		cfg, err := (&ServerOptions{Name: "api", Version: "1.0.0", HandleUpgrades: true, Spdy: true}).ServerConfig()
		require.NoError(t, err)
		require.Equal(t, "api", cfg.Name)
		require.Equal(t, "1.0.0", cfg.Version)
		require.True(t, cfg.HandleUpgrades)
		require.True(t, cfg.Spdy)
	})

	t.Run("reads key pair files", func(t *testing.T) {
		cert := writeFile(t, "cert.pem", "CERT")
		key := writeFile(t, "key.pem", "KEY")
		cfg, err := (&ServerOptions{CertFile: cert, KeyFile: key}).ServerConfig()
		require.NoError(t, err)
		require.Equal(t, []byte("CERT"), cfg.Certificate)
		require.Equal(t, []byte("KEY"), cfg.Key)
	})

	t.Run("missing files", func(t *testing.T) {
		_, err := (&ServerOptions{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}).ServerConfig()
		require.Error(t, err)
	})
}

func TestLogConfig(t *testing.T) {
	cfg := (&LogOptions{Mode: "prod", Level: "error", Dir: "/var/log"}).LogConfig("wisegin", "abc")
	require.Equal(t, &log.Config{Mode: log.Prod, Level: "error", App: "wisegin", Instance: "abc", Dir: "/var/log"}, cfg)
}
