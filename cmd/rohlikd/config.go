package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenbasket/rohlikd/internal/device"
)

const (
	// Json file configuring the bridge (account, intervals, sinks).
	defaultConfigPath = "config/rohlikd.json"

	// Env var overriding the config file password, so the file can be
	// committed without the secret.
	passwordEnvVar = "ROHLIK_PASSWORD"
)

type BridgeConfig struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CountryCode string `json:"country_code"`

	GeneralIntervalMinutes      int `json:"general_interval_minutes"`
	SlotsIntervalMinutes        int `json:"slots_interval_minutes"`
	FastDeliveryIntervalSeconds int `json:"fast_delivery_interval_seconds"`
	RequestSpacingMs            int `json:"request_spacing_ms"`

	LogLevel     string `json:"log_level"`
	StatsdAddr   string `json:"statsd_addr"`
	RedisAddr    string `json:"redis_addr"`
	RedisHashKey string `json:"redis_hash_key"`
}

func loadBridgeConfig(path string) BridgeConfig {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("reading bridge config %s: %v", path, err))
	}
	var cfg BridgeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Errorf("parsing bridge config %s: %v", path, err))
	}
	if pw := os.Getenv(passwordEnvVar); pw != "" {
		cfg.Password = pw
	}
	if cfg.Username == "" || cfg.Password == "" {
		panic(fmt.Errorf("bridge config must provide username and password (or %s)", passwordEnvVar))
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "cz"
	}
	return cfg
}

func (c BridgeConfig) pollConfig() device.PollConfig {
	return device.PollConfig{
		GeneralInterval:      time.Duration(c.GeneralIntervalMinutes) * time.Minute,
		SlotsInterval:        time.Duration(c.SlotsIntervalMinutes) * time.Minute,
		FastDeliveryInterval: time.Duration(c.FastDeliveryIntervalSeconds) * time.Second,
	}
}

func setLogging(logLevel string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	switch logLevel {
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "", "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		panic(fmt.Errorf("log level must be one of: {disabled, info, debug}"))
	}
}
