// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/pick-a-box/auth"
	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/cliparse"
	"github.com/danielhkuo/pick-a-box/docstore"
	"github.com/danielhkuo/pick-a-box/handlers"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
	"github.com/danielhkuo/pick-a-box/router"
)

const (
	redisPrefix = "pickabox:"
	natsPrefix  = "pickabox"
)

// setupLogging uses readable text on a terminal and JSON everywhere else
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore connects the configured backend, wrapped for NATS fan-out if set
func openStore(ctx context.Context, cfg cliparse.Config, clock clockwork.Clock) (docstore.Store, error) {
	var store docstore.Store
	switch cfg.StoreType {
	case models.StoreMemory:
		store = docstore.NewMemoryStore(clock)
	case models.StoreSQLite, models.StorePostgres:
		s, err := docstore.OpenSQLStore(cfg.StoreType, cfg.StoreURL, clock)
		if err != nil {
			return nil, err
		}
		store = s
	case models.StoreRedis:
		s, err := docstore.OpenRedisStore(ctx, cfg.StoreURL, redisPrefix, clock)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}

	if cfg.NATSURL == "" {
		return store, nil
	}
	nc, err := docstore.ConnectNATS(cfg.NATSURL)
	if err != nil {
		store.Close()
		return nil, err
	}
	return docstore.NewNATSStore(store, nc, natsPrefix), nil
}

func boardOptions(cfg cliparse.Config, clock clockwork.Clock) board.Options {
	opts := board.DefaultOptions()
	opts.Key = cfg.BoardKey
	opts.Size = cfg.BoardSize
	opts.SeedSecrets = cfg.SeedSecrets
	opts.WriteMode = cfg.WriteMode
	opts.ClaimOncePerDevice = cfg.ClaimOncePerDevice
	opts.ClaimOncePerIdentity = cfg.ClaimOncePerIdentity
	opts.PreserveSecretsOnShuffle = cfg.PreserveSecretsOnShuffle
	opts.Clock = clock
	return opts
}

func main() {
	var err error

	setupLogging()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	ctx := context.Background()

	// Connect to the document store
	store, err := openStore(ctx, cfg, clock)
	if err != nil {
		slog.Error("store connection failed", "store", cfg.StoreType, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Store ready", "store", cfg.StoreType, "nats", cfg.NATSURL != "")

	// Load or seed the board. A failure here is not fatal: the next board
	// read or write retries the load.
	sync := board.New(store, auth.NewPasswordChecker(cfg.AdminPassword), boardOptions(cfg, clock))
	defer sync.Close()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if b, err := sync.Initialize(initCtx); err != nil {
		slog.Error("board initialization failed", "error", err)
	} else {
		slog.Info("Board ready", "key", cfg.BoardKey, "boxes", len(b.Boxes), "round", b.Round, "write_mode", cfg.WriteMode)
	}
	cancel()

	stream := handlers.NewStreamHandler(sync, handlers.DefaultStreamConfig())
	defer stream.Close()

	// Create router
	mux := router.NewRouter(sync, stream, clock)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stream.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
