package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance  Binance  `mapstructure:"binance"`
	Telegram Telegram `mapstructure:"telegram"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Telegram holds the configuration for the Telegram remote-control channel.
// When token or chat_id is empty the bot runs without notifications.
type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// Enabled reports whether the Telegram channel is configured.
func (t Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// Server holds the configuration for the status HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Supported strategy names.
const (
	StrategyDCA        = "dca"
	StrategyVolatility = "volatility"
)

// Trading holds the configuration for the trading logic.
type Trading struct {
	Symbol     string `mapstructure:"symbol"`
	BaseAsset  string `mapstructure:"base_asset"`
	QuoteAsset string `mapstructure:"quote_asset"`
	Strategy   string `mapstructure:"strategy"`

	// BudgetRatio is the fraction of the free quote balance spent per buy.
	// QuoteAmount, when positive, overrides it with a fixed amount.
	BudgetRatio float64 `mapstructure:"budget_ratio"`
	QuoteAmount float64 `mapstructure:"quote_amount"`

	TickInterval int `mapstructure:"tick_interval"` // seconds between ticks
	Iterations   int `mapstructure:"iterations"`

	// Volatility strategy knobs.
	DropThreshold float64 `mapstructure:"drop_threshold"`
	LookbackHours int     `mapstructure:"lookback_hours"`
	SellEnabled   bool    `mapstructure:"sell_enabled"`

	DryRun bool `mapstructure:"dry_run"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("trading.strategy", StrategyDCA)
	viper.SetDefault("trading.symbol", "BTCEUR")
	viper.SetDefault("trading.base_asset", "BTC")
	viper.SetDefault("trading.quote_asset", "EUR")
	viper.SetDefault("trading.tick_interval", 3600)
	viper.SetDefault("trading.iterations", 10)
	viper.SetDefault("trading.drop_threshold", 0.03)
	viper.SetDefault("trading.lookback_hours", 12)
	viper.SetDefault("database.dsn", "dcabot.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

// Validate checks the configuration for errors that must abort startup.
// Steady-state operation never re-validates; a config that passes here
// cannot fail later for configuration reasons.
func (c *Config) Validate() error {
	if c.Binance.ApiKey == "" || c.Binance.SecretKey == "" {
		return fmt.Errorf("binance credentials are required (binance.apiKey, binance.secretKey)")
	}

	t := c.Trading
	if t.Symbol == "" || t.BaseAsset == "" || t.QuoteAsset == "" {
		return fmt.Errorf("trading.symbol, trading.base_asset and trading.quote_asset are required")
	}
	if t.TickInterval <= 0 {
		return fmt.Errorf("trading.tick_interval must be positive, got %d", t.TickInterval)
	}
	if t.Iterations <= 0 {
		return fmt.Errorf("trading.iterations must be positive, got %d", t.Iterations)
	}

	switch t.Strategy {
	case StrategyDCA:
		if t.QuoteAmount <= 0 && (t.BudgetRatio <= 0 || t.BudgetRatio > 1) {
			return fmt.Errorf("dca strategy needs trading.quote_amount > 0 or trading.budget_ratio in (0, 1]")
		}
	case StrategyVolatility:
		if t.QuoteAmount <= 0 {
			return fmt.Errorf("volatility strategy needs trading.quote_amount > 0")
		}
		if t.DropThreshold <= 0 {
			return fmt.Errorf("trading.drop_threshold must be positive, got %f", t.DropThreshold)
		}
		if t.LookbackHours <= 0 {
			return fmt.Errorf("trading.lookback_hours must be positive, got %d", t.LookbackHours)
		}
	default:
		return fmt.Errorf("unknown trading.strategy %q", t.Strategy)
	}

	return nil
}
