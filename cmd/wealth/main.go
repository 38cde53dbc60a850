package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wealth/internal/api"
	"github.com/mtlprog/wealth/internal/config"
	"github.com/mtlprog/wealth/internal/export"
	"github.com/mtlprog/wealth/internal/worker"
)

func main() {
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "wealth",
		Usage: "personal net-worth dashboard",
		Commands: []*cli.Command{
			serveCommand(),
			refreshCommand(),
			summaryCommand(),
			historyCommand(),
			exportCommand(),
			importCommand(),
			assetCommand(),
			quotesCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// withDeps loads the configuration, wires the services and runs fn.
func withDeps(fn func(c *cli.Context, d *deps) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		d, err := setup(c.Context, config.Load())
		if err != nil {
			return err
		}
		defer d.Close()
		return fn(c, d)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "refresh periodically and serve the JSON API",
		Action: withDeps(serve),
	}
}

func serve(c *cli.Context, d *deps) error {
	ctx := c.Context
	cfg := d.cfg

	lock, err := d.lockLedger()
	if err != nil {
		return fmt.Errorf("taking the ledger lock: %w", err)
	}
	defer lock.Release()

	var hook worker.AfterRefreshHook
	if cfg.SheetsEnabled() {
		writer, err := export.NewSheetsWriter(ctx, cfg.SheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			slog.Error("Google Sheets export disabled", "error", err)
		} else {
			hook = export.NewService(writer)
		}
	}

	refreshWorker := worker.NewRefreshWorker(d.refresher, cfg.RefreshInterval, hook)
	go refreshWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, refresh and import endpoints are unprotected")
	}

	handler := api.NewHandler(d.refresher, d.snapshots, d.bus, d.store)
	srv := api.NewServer(cfg.HTTPPort, handler, cfg.AdminAPIKey)

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			cancelServe()
		}
	}()

	// Wait for shutdown signal
	<-serveCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
