package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Gateway     GatewayConfig  `mapstructure:"gateway"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Engine      EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GatewayConfig selects and tunes the price-quote source.
type GatewayConfig struct {
	Mode            string `mapstructure:"mode"` // "simulated" or "http"
	ServiceURL      string `mapstructure:"service_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// EngineConfig carries every option the trading engine recognizes.
type EngineConfig struct {
	Symbols             []string `mapstructure:"symbols"`
	Exchanges           []string `mapstructure:"exchanges"`
	MinSpreadPct        float64  `mapstructure:"min_spread_pct"`
	MinVolume           float64  `mapstructure:"min_volume"`
	SizeFraction        float64  `mapstructure:"size_fraction"`
	MinTradeAmount      float64  `mapstructure:"min_trade_amount"`
	MaxTradeAmount      float64  `mapstructure:"max_trade_amount"`
	MaxPositionSize     float64  `mapstructure:"max_position_size"`
	StopLossPct         float64  `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64  `mapstructure:"take_profit_pct"`
	MaxHoldSeconds      int      `mapstructure:"max_hold_seconds"`
	MaxTradesPerHour    int      `mapstructure:"max_trades_per_hour"`
	MaxDailyLoss        float64  `mapstructure:"max_daily_loss"`
	MaxOpenPositions    int      `mapstructure:"max_open_positions"`
	ScanIntervalSeconds int      `mapstructure:"scan_interval_seconds"`
	FeeRate             float64  `mapstructure:"fee_rate"`
	MaxSlippagePct      float64  `mapstructure:"max_slippage_pct"`
	StartingBalance     float64  `mapstructure:"starting_balance"`
}

// ScanInterval returns the engine loop interval as a duration.
func (e EngineConfig) ScanInterval() time.Duration {
	return time.Duration(e.ScanIntervalSeconds) * time.Second
}

// MaxHold returns the maximum position holding time as a duration.
func (e EngineConfig) MaxHold() time.Duration {
	return time.Duration(e.MaxHoldSeconds) * time.Second
}

// Timeout returns the gateway request timeout as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// CacheTTL returns the quote cache lifetime as a duration.
func (g GatewayConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLSeconds) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks engine and gateway options for values that would make the
// trading loop misbehave silently.
func (c *Config) Validate() error {
	e := c.Engine
	if e.MinSpreadPct <= 0 || e.MinSpreadPct >= 1 {
		return fmt.Errorf("engine.min_spread_pct must be a fraction in (0, 1), got %v", e.MinSpreadPct)
	}
	if e.SizeFraction <= 0 || e.SizeFraction > 1 {
		return fmt.Errorf("engine.size_fraction must be in (0, 1], got %v", e.SizeFraction)
	}
	if e.MinTradeAmount <= 0 {
		return fmt.Errorf("engine.min_trade_amount must be positive, got %v", e.MinTradeAmount)
	}
	if e.MaxTradeAmount < e.MinTradeAmount {
		return fmt.Errorf("engine.max_trade_amount %v is below min_trade_amount %v", e.MaxTradeAmount, e.MinTradeAmount)
	}
	if e.StopLossPct <= 0 || e.TakeProfitPct <= 0 {
		return fmt.Errorf("engine stop_loss_pct and take_profit_pct must be positive fractions")
	}
	if e.MaxOpenPositions <= 0 {
		return fmt.Errorf("engine.max_open_positions must be positive, got %d", e.MaxOpenPositions)
	}
	if e.MaxTradesPerHour <= 0 {
		return fmt.Errorf("engine.max_trades_per_hour must be positive, got %d", e.MaxTradesPerHour)
	}
	if e.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("engine.scan_interval_seconds must be positive, got %d", e.ScanIntervalSeconds)
	}
	if len(e.Symbols) == 0 {
		return fmt.Errorf("engine.symbols must not be empty")
	}
	if len(e.Exchanges) < 2 {
		return fmt.Errorf("engine.exchanges needs at least 2 exchanges for cross-exchange scans, got %d", len(e.Exchanges))
	}

	switch c.Gateway.Mode {
	case "simulated", "http":
	default:
		return fmt.Errorf("gateway.mode must be \"simulated\" or \"http\", got %q", c.Gateway.Mode)
	}
	if c.Gateway.Mode == "http" && c.Gateway.ServiceURL == "" {
		return fmt.Errorf("gateway.service_url is required when gateway.mode is \"http\"")
	}
	if c.Gateway.TimeoutSeconds <= 0 {
		return fmt.Errorf("gateway.timeout_seconds must be positive, got %d", c.Gateway.TimeoutSeconds)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "arbiter")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("gateway.mode", "simulated")
	viper.SetDefault("gateway.service_url", "")
	viper.SetDefault("gateway.timeout_seconds", 10)
	viper.SetDefault("gateway.cache_ttl_seconds", 2)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	viper.SetDefault("engine.symbols", []string{
		"BTCUSDT", "ETHUSDT", "ADAUSDT", "DOTUSDT", "LINKUSDT",
		"LTCUSDT", "XLMUSDT", "TRXUSDT", "EOSUSDT", "SOLUSDT",
	})
	viper.SetDefault("engine.exchanges", []string{"binance", "kucoin"})
	viper.SetDefault("engine.min_spread_pct", 0.005)
	viper.SetDefault("engine.min_volume", 10.0)
	viper.SetDefault("engine.size_fraction", 0.1)
	viper.SetDefault("engine.min_trade_amount", 5.0)
	viper.SetDefault("engine.max_trade_amount", 15.0)
	viper.SetDefault("engine.max_position_size", 15.0)
	viper.SetDefault("engine.stop_loss_pct", 0.02)
	viper.SetDefault("engine.take_profit_pct", 0.008)
	viper.SetDefault("engine.max_hold_seconds", 300)
	viper.SetDefault("engine.max_trades_per_hour", 10)
	viper.SetDefault("engine.max_daily_loss", 5.0)
	viper.SetDefault("engine.max_open_positions", 3)
	viper.SetDefault("engine.scan_interval_seconds", 5)
	viper.SetDefault("engine.fee_rate", 0.001)
	viper.SetDefault("engine.max_slippage_pct", 0.0005)
	viper.SetDefault("engine.starting_balance", 30.0)
}
