package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/example/chainbadge/internal/logger"
)

// Config holds environment-driven configuration. Every key can also be set in
// an optional config file named by CONFIG_FILE; the environment wins.
type Config struct {
	Port                     string        `mapstructure:"port" json:"port" validate:"required,hostname_port|numeric"`
	ChainlistURL             string        `mapstructure:"chainlist_url" json:"chainlist_url" validate:"required,url"`
	DirectoryRefreshInterval time.Duration `mapstructure:"directory_refresh_interval" json:"directory_refresh_interval" validate:"gt=0"`
	DirectoryRetryAfter      time.Duration `mapstructure:"directory_retry_after" json:"directory_retry_after" validate:"gt=0"`
	RPCAttemptTimeout        time.Duration `mapstructure:"rpc_attempt_timeout" json:"rpc_attempt_timeout" validate:"gt=0"`
	HTTPTimeout              time.Duration `mapstructure:"http_timeout" json:"http_timeout" validate:"gt=0"`
	RequestTimeout           time.Duration `mapstructure:"request_timeout" json:"request_timeout" validate:"gt=0"`
	BitcoinExplorerURL       string        `mapstructure:"bitcoin_explorer_url" json:"bitcoin_explorer_url" validate:"required,url"`
	BalanceCacheTTL          time.Duration `mapstructure:"balance_cache_ttl" json:"balance_cache_ttl" validate:"gte=0"`
	BalanceCacheSize         int           `mapstructure:"balance_cache_size" json:"balance_cache_size" validate:"gt=0"`
	EndpointRPM              int           `mapstructure:"endpoint_rpm" json:"endpoint_rpm" validate:"gte=0"`
	MaxConcurrency           int           `mapstructure:"max_concurrency" json:"max_concurrency" validate:"gt=0,lte=256"`
	Log                      logger.Conf   `mapstructure:"log" json:"log"`
}

var defaults = map[string]interface{}{
	"port":                       "8080",
	"chainlist_url":              "https://chainid.network/chains.json",
	"directory_refresh_interval": 24 * time.Hour,
	"directory_retry_after":      time.Minute,
	"rpc_attempt_timeout":        8 * time.Second,
	"http_timeout":               10 * time.Second,
	"request_timeout":            30 * time.Second,
	"bitcoin_explorer_url":       "https://mempool.space",
	"balance_cache_ttl":          15 * time.Second,
	"balance_cache_size":         10_000,
	"endpoint_rpm":               0,
	"max_concurrency":            16,
	"log.level":                  "info",
	"log.format":                 "json",
	"log.output":                 "stdout",
	"log.file":                   "",
	"log.max_size_mb":            100,
	"log.max_backups":            5,
	"log.max_age_days":           14,
}

// Load reads configuration from the environment (PORT, CHAINLIST_URL,
// LOG_LEVEL, ...) on top of an optional file. An empty file falls back to
// CONFIG_FILE.
func Load(file string) (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = v.GetString("config_file")
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", file)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
