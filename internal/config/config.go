// Package config defines the top-level configuration for the whale
// watcher and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"solana-whale-watch/internal/classify"
)

// duration wraps time.Duration so TOML values can be written as "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration structure. Fields are populated from
// a TOML file and then optionally overridden by WHALEWATCH_* environment
// variables.
type Config struct {
	Stream     StreamConfig     `toml:"stream"`
	RPC        RPCConfig        `toml:"rpc"`
	Book       BookConfig       `toml:"book"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Notify     NotifyConfig     `toml:"notify"`
	Storage    StorageConfig    `toml:"storage"`
	Stats      StatsConfig      `toml:"stats"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// StreamConfig holds the transaction stream subscription parameters.
type StreamConfig struct {
	WSEndpoint    string   `toml:"ws_endpoint"`
	Programs      []string `toml:"programs"`
	Commitment    string   `toml:"commitment"`
	LogsEndpoint  string   `toml:"logs_endpoint"`
	LogsMentions  []string `toml:"logs_mentions"`
	MaxReconnects int      `toml:"max_reconnects"`
	BackoffBase   duration `toml:"backoff_base"`
	BackoffCap    duration `toml:"backoff_cap"`
	Buffer        int      `toml:"buffer"`
}

// RPCConfig holds the HTTP JSON-RPC parameters for detail fetches.
type RPCConfig struct {
	HTTPEndpoint string   `toml:"http_endpoint"`
	Timeout      duration `toml:"timeout"`
	MaxRetries   int      `toml:"max_retries"`
}

// BookConfig holds the optional order-book feed parameters.
type BookConfig struct {
	WSEndpoint string `toml:"ws_endpoint"`
}

// ThresholdsConfig holds the whale-event gates. Zero disables a gate.
type ThresholdsConfig struct {
	// TransferAmount is the minimum raw transfer amount, in base units
	// (lamports for SOL transfers).
	TransferAmount uint64 `toml:"transfer_amount"`
	// TradeSol is the minimum trade notional in whole SOL.
	TradeSol float64 `toml:"trade_sol"`
	// WallNotional is the minimum order-book level notional.
	WallNotional float64 `toml:"wall_notional"`
}

// TradeLamports converts the SOL trade threshold to lamports.
func (t ThresholdsConfig) TradeLamports() uint64 {
	if t.TradeSol <= 0 {
		return 0
	}
	return uint64(t.TradeSol * classify.LamportsPerSol)
}

// NotifyConfig holds alert delivery parameters. Telegram is used when
// both token and chat ID are set; otherwise alerts go to the log.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	MinSendDelay   duration `toml:"min_send_delay"`
	Batching       bool     `toml:"batching"`
	BatchInterval  duration `toml:"batch_interval"`
	QueueCapacity  int      `toml:"queue_capacity"`
}

// StorageConfig holds database connection parameters. Empty DSNs select
// the in-memory store and disable the archive.
type StorageConfig struct {
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickHouseDSN string `toml:"clickhouse_dsn"`
}

// StatsConfig holds whale profile aggregation parameters.
type StatsConfig struct {
	FlushInterval duration `toml:"flush_interval"`
	TopLimit      int      `toml:"top_limit"`
}

// ServerConfig holds the metrics/health HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validCommitments enumerates the accepted subscription commitment levels.
var validCommitments = map[string]bool{
	"processed": true,
	"confirmed": true,
	"finalized": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Stream.WSEndpoint) == "" {
		errs = append(errs, "stream: ws_endpoint must not be empty")
	}
	if c.Stream.Commitment != "" && !validCommitments[c.Stream.Commitment] {
		errs = append(errs, fmt.Sprintf("stream: unknown commitment %q (valid: processed, confirmed, finalized)", c.Stream.Commitment))
	}
	if c.Stream.MaxReconnects < 0 {
		errs = append(errs, "stream: max_reconnects must not be negative")
	}
	if c.Stream.BackoffBase.Duration < 0 || c.Stream.BackoffCap.Duration < 0 {
		errs = append(errs, "stream: backoff durations must not be negative")
	}
	if c.Stream.BackoffCap.Duration > 0 && c.Stream.BackoffCap.Duration < c.Stream.BackoffBase.Duration {
		errs = append(errs, "stream: backoff_cap must not be below backoff_base")
	}

	if strings.TrimSpace(c.RPC.HTTPEndpoint) == "" && (c.Stream.LogsEndpoint != "" || len(c.Stream.LogsMentions) > 0) {
		errs = append(errs, "rpc: http_endpoint is required when the logs feed is enabled")
	}
	if c.RPC.MaxRetries < 0 {
		errs = append(errs, "rpc: max_retries must not be negative")
	}

	if c.Thresholds.TradeSol < 0 {
		errs = append(errs, "thresholds: trade_sol must not be negative")
	}
	if c.Thresholds.WallNotional < 0 {
		errs = append(errs, "thresholds: wall_notional must not be negative")
	}

	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.MinSendDelay.Duration < 0 {
		errs = append(errs, "notify: min_send_delay must not be negative")
	}
	if c.Notify.Batching && c.Notify.BatchInterval.Duration <= 0 {
		errs = append(errs, "notify: batch_interval must be positive when batching is enabled")
	}

	if c.Stats.FlushInterval.Duration <= 0 {
		errs = append(errs, "stats: flush_interval must be positive")
	}
	if c.Stats.TopLimit <= 0 {
		errs = append(errs, "stats: top_limit must be positive")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
