package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ethoscope/internal/api"
	"ethoscope/internal/config"
	"ethoscope/internal/logging"
	"ethoscope/internal/phase"
	"ethoscope/internal/sim"
	"ethoscope/internal/store"
)

var serveFlags struct {
	configPath string
	listen     string
	archiveDB  string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP session API",
	Long: `Serve hosts the session API: start sessions, feed interactions,
fetch reports, and clean up. Completed sessions are archived to SQLite
when an archive DB is configured. Idle sessions are evicted on a timer.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.configPath, "config", "", "Path to YAML config file")
	f.StringVar(&serveFlags.listen, "listen", "", "Listen address (overrides config)")
	f.StringVar(&serveFlags.archiveDB, "archive-db", "", "SQLite archive path (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveFlags.configPath)
	if err != nil {
		return err
	}
	if serveFlags.listen != "" {
		cfg.Listen = serveFlags.listen
	}
	if serveFlags.archiveDB != "" {
		cfg.ArchiveDB = serveFlags.archiveDB
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	log := logging.New("serve")

	criteria := phase.DefaultCriteria()
	criteria.PollInterval = cfg.PollInterval.Std()

	opts := []sim.Option{sim.WithCriteria(criteria)}
	if cfg.ArchiveDB != "" {
		st, err := store.Open(cfg.ArchiveDB)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, sim.WithArchive(st))
		log.Info("archiving enabled", "db", cfg.ArchiveDB)
	}
	engine := sim.NewEngine(opts...)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      api.NewServer(engine).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		window := cfg.IdleWindow.Std()
		if window <= 0 {
			<-ctx.Done()
			return nil
		}
		ticker := time.NewTicker(window / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := engine.EvictIdle(window); n > 0 {
					log.Info("evicted idle sessions", "count", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shut down cleanly", "live_sessions", engine.Len())
	return nil
}
