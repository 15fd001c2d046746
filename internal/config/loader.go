package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Stream: StreamConfig{
			Commitment:    "confirmed",
			MaxReconnects: 10,
			BackoffBase:   duration{time.Second},
			BackoffCap:    duration{30 * time.Second},
			Buffer:        256,
		},
		RPC: RPCConfig{
			Timeout:    duration{15 * time.Second},
			MaxRetries: 3,
		},
		Thresholds: ThresholdsConfig{
			TradeSol: 50,
		},
		Notify: NotifyConfig{
			MinSendDelay:  duration{1500 * time.Millisecond},
			BatchInterval: duration{10 * time.Minute},
			QueueCapacity: 256,
		},
		Stats: StatsConfig{
			FlushInterval: duration{time.Minute},
			TopLimit:      20,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    9090,
		},
		LogLevel: "info",
	}
}

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WHALEWATCH_* environment variable
// overrides, and returns the final Config. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
// An empty path skips the file and uses defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WHALEWATCH_* environment variables
// and overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Stream.WSEndpoint, "WHALEWATCH_STREAM_WS_ENDPOINT")
	setStringSlice(&cfg.Stream.Programs, "WHALEWATCH_STREAM_PROGRAMS")
	setStr(&cfg.Stream.Commitment, "WHALEWATCH_STREAM_COMMITMENT")
	setStr(&cfg.Stream.LogsEndpoint, "WHALEWATCH_STREAM_LOGS_ENDPOINT")
	setStringSlice(&cfg.Stream.LogsMentions, "WHALEWATCH_STREAM_LOGS_MENTIONS")
	setInt(&cfg.Stream.MaxReconnects, "WHALEWATCH_STREAM_MAX_RECONNECTS")
	setDuration(&cfg.Stream.BackoffBase, "WHALEWATCH_STREAM_BACKOFF_BASE")
	setDuration(&cfg.Stream.BackoffCap, "WHALEWATCH_STREAM_BACKOFF_CAP")
	setInt(&cfg.Stream.Buffer, "WHALEWATCH_STREAM_BUFFER")

	setStr(&cfg.RPC.HTTPEndpoint, "WHALEWATCH_RPC_HTTP_ENDPOINT")
	setDuration(&cfg.RPC.Timeout, "WHALEWATCH_RPC_TIMEOUT")
	setInt(&cfg.RPC.MaxRetries, "WHALEWATCH_RPC_MAX_RETRIES")

	setStr(&cfg.Book.WSEndpoint, "WHALEWATCH_BOOK_WS_ENDPOINT")

	setUint64(&cfg.Thresholds.TransferAmount, "WHALEWATCH_THRESHOLDS_TRANSFER_AMOUNT")
	setFloat64(&cfg.Thresholds.TradeSol, "WHALEWATCH_THRESHOLDS_TRADE_SOL")
	setFloat64(&cfg.Thresholds.WallNotional, "WHALEWATCH_THRESHOLDS_WALL_NOTIONAL")

	setStr(&cfg.Notify.TelegramToken, "WHALEWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WHALEWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setDuration(&cfg.Notify.MinSendDelay, "WHALEWATCH_NOTIFY_MIN_SEND_DELAY")
	setBool(&cfg.Notify.Batching, "WHALEWATCH_NOTIFY_BATCHING")
	setDuration(&cfg.Notify.BatchInterval, "WHALEWATCH_NOTIFY_BATCH_INTERVAL")
	setInt(&cfg.Notify.QueueCapacity, "WHALEWATCH_NOTIFY_QUEUE_CAPACITY")

	setStr(&cfg.Storage.PostgresDSN, "WHALEWATCH_STORAGE_POSTGRES_DSN")
	setStr(&cfg.Storage.ClickHouseDSN, "WHALEWATCH_STORAGE_CLICKHOUSE_DSN")

	setDuration(&cfg.Stats.FlushInterval, "WHALEWATCH_STATS_FLUSH_INTERVAL")
	setInt(&cfg.Stats.TopLimit, "WHALEWATCH_STATS_TOP_LIMIT")

	setBool(&cfg.Server.Enabled, "WHALEWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WHALEWATCH_SERVER_PORT")

	setStr(&cfg.LogLevel, "WHALEWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
