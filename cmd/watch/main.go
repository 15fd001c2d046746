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

	"golang.org/x/sync/errgroup"

	"solana-whale-watch/internal/classify"
	"solana-whale-watch/internal/config"
	"solana-whale-watch/internal/notify"
	"solana-whale-watch/internal/observability"
	"solana-whale-watch/internal/solana"
	"solana-whale-watch/internal/stats"
	"solana-whale-watch/internal/storage"
	chstore "solana-whale-watch/internal/storage/clickhouse"
	"solana-whale-watch/internal/storage/memory"
	pgstore "solana-whale-watch/internal/storage/postgres"
	"solana-whale-watch/internal/txview"
	"solana-whale-watch/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	// Metrics and health server
	if cfg.Server.Enabled {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the stores, feeds and the event loop, and blocks until the
// context is cancelled or a component fails.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	// Whale profile store: Postgres when configured, in-memory otherwise.
	var profileStore storage.WhaleProfileStore
	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		profileStore = pgstore.NewWhaleProfileStore(pool)
		logger.Println("Using PostgreSQL whale profile store")
	} else {
		profileStore = memory.NewWhaleProfileStore()
		logger.Println("Using in-memory whale profile store")
	}

	// Event archive is optional.
	var archive storage.EventArchive
	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer conn.Close()
		archive = chstore.NewEventArchive(conn)
		logger.Println("Archiving events to ClickHouse")
	}

	var rpc solana.RPCClient
	if cfg.RPC.HTTPEndpoint != "" {
		rpc = solana.NewHTTPClient(cfg.RPC.HTTPEndpoint,
			solana.WithTimeout(cfg.RPC.Timeout.Duration),
			solana.WithMaxRetries(cfg.RPC.MaxRetries),
		)
	}

	// Alert sink: Telegram when credentials are present.
	var sink notify.Sink = notify.NewConsoleSink(logger)
	if cfg.Notify.TelegramToken != "" {
		sink = notify.NewTelegramSink(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		logger.Println("Delivering alerts to Telegram")
	}
	queue := notify.NewQueue(sink, notify.QueueConfig{
		MinSendDelay:  cfg.Notify.MinSendDelay.Duration,
		Batching:      cfg.Notify.Batching,
		BatchInterval: cfg.Notify.BatchInterval.Duration,
		Capacity:      cfg.Notify.QueueCapacity,
	}, logger)

	streamCfg := func(endpoint, method string, mentions []string) solana.StreamConfig {
		return solana.StreamConfig{
			Endpoint:      endpoint,
			Method:        method,
			Mentions:      mentions,
			Commitment:    cfg.Stream.Commitment,
			BackoffBase:   cfg.Stream.BackoffBase.Duration,
			BackoffCap:    cfg.Stream.BackoffCap.Duration,
			MaxReconnects: cfg.Stream.MaxReconnects,
			Buffer:        cfg.Stream.Buffer,
		}
	}

	txStream := solana.NewStreamClient(
		streamCfg(cfg.Stream.WSEndpoint, solana.MethodTransactions, cfg.Stream.Programs), logger)

	var logsStream *solana.StreamClient
	if cfg.Stream.LogsEndpoint != "" {
		logsStream = solana.NewStreamClient(
			streamCfg(cfg.Stream.LogsEndpoint, solana.MethodLogs, cfg.Stream.LogsMentions), logger)
	}

	var bookStream *solana.StreamClient
	if cfg.Book.WSEndpoint != "" {
		bookStream = solana.NewStreamClient(
			streamCfg(cfg.Book.WSEndpoint, "bookSubscribe", nil), logger)
	}

	runner := watcher.NewRunner(watcher.Options{
		TxMessages:   txStream.Messages(),
		LogMessages:  messagesOrNil(logsStream),
		BookMessages: messagesOrNil(bookStream),
		RPC:          rpc,
		Classifier: classify.New(classify.Thresholds{
			TransferAmount: cfg.Thresholds.TransferAmount,
			TradeLamports:  cfg.Thresholds.TradeLamports(),
			WallNotional:   cfg.Thresholds.WallNotional,
		}, logger),
		Migrations:    classify.NewMigrationDetector(),
		WallDetector:  classify.NewOrderWallDetector(cfg.Thresholds.WallNotional),
		Aggregator:    stats.New(txview.IsOnCurve),
		Queue:         queue,
		ProfileStore:  profileStore,
		Archive:       archive,
		FlushInterval: cfg.Stats.FlushInterval.Duration,
		Logger:        logger,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return txStream.Run(ctx) })
	if logsStream != nil {
		g.Go(func() error { return logsStream.Run(ctx) })
	}
	if bookStream != nil {
		g.Go(func() error { return bookStream.Run(ctx) })
	}
	g.Go(func() error {
		// The queue drains buffered alerts after the runner stops.
		defer queue.Close()
		return runner.Run(ctx)
	})
	g.Go(func() error { return queue.Run(ctx) })

	return g.Wait()
}

// messagesOrNil returns the client's channel, or nil to disable the
// select arm when the feed is not configured.
func messagesOrNil(c *solana.StreamClient) <-chan solana.StreamMessage {
	if c == nil {
		return nil
	}
	return c.Messages()
}
