// Package main is the entry point for the Haven Player backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/infra/mpd"
	"github.com/Haven-hvn/haven-player-sub000/internal/playback"
	"github.com/Haven-hvn/haven-player-sub000/internal/prefs"
	"github.com/Haven-hvn/haven-player-sub000/internal/transport/socketio"
	"github.com/Haven-hvn/haven-player-sub000/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "3001", "HTTP server port")
	mpdHost := flag.String("mpd-host", "localhost", "MPD host")
	mpdPort := flag.Int("mpd-port", 6600, "MPD port")
	mpdPassword := flag.String("mpd-password", "", "MPD password")
	source := flag.String("source", "", "Media URI to load on startup (optional)")
	dataDir := flag.String("data-dir", "", "Directory for persisted player preferences (in-memory if empty)")
	maxConnections := flag.Int("max-connections", 4, "Maximum concurrent external clients")
	maxRetries := flag.Int("max-retries", 5, "Automatic recovery attempts before an error becomes terminal")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Resilient Video Playback Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("mpd_host", *mpdHost).
		Int("mpd_port", *mpdPort).
		Bool("password_set", *mpdPassword != "").
		Str("data_dir", *dataDir).
		Int("max_connections", *maxConnections).
		Msg("Configuration")

	// Preference store: badger on disk when a data dir is given, otherwise
	// in-memory for the session.
	var store prefs.Store
	if *dataDir != "" {
		badgerStore, err := prefs.OpenBadger(*dataDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", *dataDir).Msg("Failed to open preference store")
		}
		defer badgerStore.Close()
		store = badgerStore
	} else {
		store = prefs.NewMemoryStore()
	}

	// Create MPD client
	mpdClient := mpd.NewClient(*mpdHost, *mpdPort, *mpdPassword)
	if err := mpdClient.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MPD")
	}
	defer mpdClient.Close()

	if err := mpdClient.Ping(); err != nil {
		log.Fatal().Err(err).Msg("MPD ping failed")
	}
	log.Info().Msg("MPD connection verified")

	// Playback controller over the MPD element
	element := mpd.NewElement(mpdClient)
	ctrl := playback.New(element, store, playback.Options{
		MaxRetries: *maxRetries,
	})
	defer ctrl.Close()

	if *source != "" {
		if err := element.SetSource(*source); err != nil {
			log.Error().Err(err).Str("uri", *source).Msg("Failed to load startup source")
		} else {
			log.Info().Str("uri", *source).Msg("Startup source loaded")
		}
	}

	// Create Socket.io server
	socketServer, err := socketio.NewServer(ctrl, *maxConnections)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	ctrl.SetPresenter(socketServer)
	ctrl.OnChange(socketServer.NotifyStateChange)

	// Pump MPD subsystem events into the controller
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := mpd.NewPump(mpdClient, ctrl)
	go func() {
		if err := pump.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("MPD event pump stopped")
		}
	}()

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := mpdClient.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","mpd":"disconnected"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","mpd":"connected"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// State endpoint (REST fallback for clients without a socket)
	mux.HandleFunc("/api/v1/getState", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ctrl.Snapshot())
	})

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
