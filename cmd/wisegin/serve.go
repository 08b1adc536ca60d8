package main

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"git.dzz.com/wisegin"
	"git.dzz.com/wisegin/config"
	"git.dzz.com/wisegin/log"
	httpserver "git.dzz.com/wisegin/transport/http"
	_ "git.dzz.com/wisegin/transport/http/gin"
)

func newServeCmd() *cobra.Command {
	var path string
	flags := config.NewOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built-in routes until signaled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(opts)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "Config file (yaml, json or toml).")
	flags.AddFlags(cmd.Flags())
	return cmd
}

func serve(opts *config.Options) error {
	log.New(opts.Log.LogConfig(opts.Server.Name, instance()))
	defer log.Sync()

	cfg, err := opts.Server.ServerConfig()
	if err != nil {
		return err
	}
	srv, err := httpserver.New(cfg, httpserver.WithEngine(opts.Server.Engine))
	if err != nil {
		return err
	}
	routes(srv)

	app := wisegin.New(
		wisegin.Name(cfg.Name),
		wisegin.Version(release),
		wisegin.StopTimeout(5*time.Second),
		wisegin.Server(httpserver.NewRunner(srv, opts.Server.Port, opts.Server.Host, opts.Server.Backlog)),
	)
	return app.Run()
}

// routes registers the health and echo endpoints.
func routes(srv *httpserver.Server) {
	srv.UncaughtException(func(req *http.Request, res httpserver.Response, err error) {
		log.Errorf("uncaught %s %s: %v", req.Method, req.URL.Path, err)
		srv.OutputHandler(http.StatusInternalServerError, err, req, res)
	})
	srv.AddRoute("GET", "/healthz", func(req *http.Request, res httpserver.Response) error {
		srv.OutputHandler(http.StatusOK, map[string]string{"status": "ok"}, req, res)
		return nil
	})
	srv.AddRoute("GET", "/echo", func(req *http.Request, res httpserver.Response) error {
		conn, err := res.Upgrade()
		if err != nil {
			return err
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return nil
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return nil
			}
		}
	})
}

// instance names this process in log files, "local" when the hostname is unknown.
func instance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		log.Warnf("hostname unavailable, using instance name local: %v", err)
		return "local"
	}
	return host
}
