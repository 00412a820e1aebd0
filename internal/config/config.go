// Package config loads the ledger service settings from the environment or
// an optional .env file in the working directory.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config stores all configuration for the ledger service.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisDB               int    `mapstructure:"REDIS_DB"`
	LedgerEventsStream    string `mapstructure:"LEDGER_EVENTS_STREAM"`
	LedgerEventsMaxLen    int64  `mapstructure:"LEDGER_EVENTS_MAX_LEN"`
	AccountViewTTLSeconds int    `mapstructure:"ACCOUNT_VIEW_TTL_SECONDS"`
	BusinessTimezone      string `mapstructure:"BUSINESS_TIMEZONE"`
	MaturitySweepSchedule string `mapstructure:"MATURITY_SWEEP_SCHEDULE"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.AllowEmptyEnv(true) // an empty MATURITY_SWEEP_SCHEDULE disables the sweep
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LEDGER_EVENTS_STREAM", "ledger.events")
	viper.SetDefault("LEDGER_EVENTS_MAX_LEN", 100000)
	viper.SetDefault("ACCOUNT_VIEW_TTL_SECONDS", 300)
	viper.SetDefault("BUSINESS_TIMEZONE", "Asia/Seoul")
	viper.SetDefault("MATURITY_SWEEP_SCHEDULE", "5 0 * * *") // 00:05 every day

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_ADDR")
	_ = viper.BindEnv("REDIS_PASSWORD")
	_ = viper.BindEnv("REDIS_DB")
	_ = viper.BindEnv("LEDGER_EVENTS_STREAM")
	_ = viper.BindEnv("LEDGER_EVENTS_MAX_LEN")
	_ = viper.BindEnv("ACCOUNT_VIEW_TTL_SECONDS")
	_ = viper.BindEnv("BUSINESS_TIMEZONE")
	_ = viper.BindEnv("MATURITY_SWEEP_SCHEDULE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Error reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.AccountViewTTLSeconds <= 0 {
		return nil, fmt.Errorf("ACCOUNT_VIEW_TTL_SECONDS must be positive, got %d", config.AccountViewTTLSeconds)
	}
	if _, err := config.Location(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Location is the time zone whose calendar day counts as "today".
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", c.BusinessTimezone, err)
	}
	return loc, nil
}

func (c *Config) AccountViewTTL() time.Duration {
	return time.Duration(c.AccountViewTTLSeconds) * time.Second
}
