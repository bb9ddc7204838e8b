package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gluk-w/claworc/shellhub/internal/config"
	"github.com/gluk-w/claworc/shellhub/internal/database"
	"github.com/gluk-w/claworc/shellhub/internal/events"
	"github.com/gluk-w/claworc/shellhub/internal/handlers"
	"github.com/gluk-w/claworc/shellhub/internal/logging"
	"github.com/gluk-w/claworc/shellhub/internal/middleware"
	"github.com/gluk-w/claworc/shellhub/internal/session"
)

func main() {
	// Handle CLI commands before starting the server
	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		runSeedCommand()
		return
	}

	config.Load()
	logging.Init(config.Cfg.LogFilePath())
	defer logging.Close()

	stopTrimmer, err := logging.StartTrimmer(config.Cfg.LogTrimSchedule, config.Cfg.LogMaxBytes)
	if err != nil {
		log.Printf("WARNING: %v", err)
	} else {
		defer stopTrimmer()
	}

	db, err := database.Open(config.Cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close(db)
	store := database.NewConnectionStore(db)

	if config.Cfg.SeedFile != "" {
		n, err := store.SeedFromFile(context.Background(), config.Cfg.SeedFile)
		if err != nil {
			log.Printf("WARNING: seed connections: %v", err)
		} else if n > 0 {
			log.Printf("Seeded %d connection(s) from %s", n, config.Cfg.SeedFile)
		}
	}

	hub := events.NewHub()
	sink := session.MultiSink{hub, session.SinkFunc(logClosed)}

	killGrace := config.Cfg.LocalKillGrace
	if killGrace <= 0 {
		killGrace = -1
	}
	sessMgr, err := session.NewManager(sink, session.Config{
		LocalShell:     config.Cfg.LocalShell,
		LocalKillGrace: killGrace,
		ConnectTimeout: config.Cfg.SSHConnectTimeout,
		TerminalType:   config.Cfg.TerminalType,
		TermCols:       config.Cfg.TerminalCols,
		TermRows:       config.Cfg.TerminalRows,
		KnownHostsPath: config.Cfg.KnownHosts,
		AgentSocket:    config.Cfg.AgentSocket,
	})
	if err != nil {
		log.Fatalf("Session manager init: %v", err)
	}
	log.Printf("Session manager initialized (terminal=%s %dx%d, connect_timeout=%s, kill_grace=%s)",
		config.Cfg.TerminalType, config.Cfg.TerminalCols, config.Cfg.TerminalRows,
		config.Cfg.SSHConnectTimeout, config.Cfg.LocalKillGrace)

	h := &handlers.Handler{
		Sessions:       sessMgr,
		Connections:    store,
		Events:         hub,
		MaxInputBytes:  config.Cfg.MaxInputBytes,
		CommandTimeout: config.Cfg.CommandTimeout,
	}

	if config.Cfg.AuthToken == "" {
		log.Printf("WARNING: SHELLHUB_AUTH_TOKEN is not set, the API is unauthenticated")
	}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no auth)
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(config.Cfg.AuthToken))
		h.Routes(r)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sessMgr.Shutdown(shutdownCtx); err != nil {
		log.Printf("Session shutdown: %v", err)
	}
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func logClosed(e session.Event) {
	if e.Kind == session.EventClosed {
		log.Printf("[events] session %s closed", e.SessionID)
	}
}

func runSeedCommand() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "", "YAML file with connection profiles")
	fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: shellhub --seed --file <connections.yaml>\n")
		os.Exit(1)
	}

	config.Load()
	db, err := database.Open(config.Cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close(db)

	n, err := database.NewConnectionStore(db).SeedFromFile(context.Background(), *file)
	if err != nil {
		log.Fatalf("Failed to seed connections: %v", err)
	}
	fmt.Printf("Imported %d connection(s) from %s.\n", n, *file)
}
