// cmd/mcp-server/main.go: Standalone HTTP MCP server for symlie
//
// Exposes the symlie kernel and tangent Jacobian tools as an HTTP endpoint for AI agent
// frameworks.
//
// Usage:
//
//	go run ./cmd/mcp-server --addr :8080 --strategy chain_rule
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/symlie/internal/config"
	"github.com/njchilds90/symlie/mcp"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("mcp-server", pflag.ContinueOnError)
	cfgFile := fs.String("config", "", "Config file (default: ./symlie.yaml)")
	fs.String("addr", config.DefaultAddr, "Listen address")
	fs.String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	fs.String("strategy", config.DefaultStrategy, "Jacobian strategy (first_order|chain_rule)")
	fs.Float64("epsilon", config.DefaultEpsilon, "Singularity-avoidance epsilon")
	fs.Int("workers", config.DefaultWorkers, "Arguments differentiated concurrently")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*cfgFile, fs)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mcp.NewRouter(mcp.NewHandler(cfg, logger)),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("symlie MCP server listening", "addr", cfg.Addr, "strategy", cfg.Strategy, "config", cfg.File)

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Debug("shutting down MCP server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
