package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mcdev12/underline/go/internal/jobs"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/mcdev12/underline/go/internal/wallet"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Env is the process configuration read from the environment
type Env struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	Environment    string   `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	ConfigPath     string   `envconfig:"CONFIG_PATH" default:"config.yaml"`
	JWTSecret      string   `envconfig:"JWT_SECRET" required:"true"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	ApplySchema    bool     `envconfig:"APPLY_SCHEMA" default:"true"`

	NATSURL string `envconfig:"NATS_URL"` // empty relays notifications to the log

	StatsFeedURL string  `envconfig:"STATS_FEED_URL" default:"http://localhost:9090"`
	StatsFeedKey string  `envconfig:"STATS_FEED_API_KEY"`
	StatsFeedRPS float64 `envconfig:"STATS_FEED_RPS" default:"5"`
}

// Config holds the business rules and job schedules from the YAML file
type Config struct {
	ReferenceZone string `yaml:"reference_zone"`
	StakeWindow   struct {
		StartHour int `yaml:"start_hour"`
		EndHour   int `yaml:"end_hour"`
	} `yaml:"stake_window"`
	Wallet            wallet.Policy `yaml:"wallet"`
	PayoutMultipliers map[int]int   `yaml:"payout_multipliers"` // nil uses the built-in table
	Schedule          jobs.Schedule `yaml:"schedule"`
	Outbox            struct {
		PollInterval    time.Duration `yaml:"poll_interval"`
		BatchSize       int           `yaml:"batch_size"`
		HealthThreshold time.Duration `yaml:"health_threshold"`
	} `yaml:"outbox"`
}

func defaultConfig() Config {
	var c Config
	c.ReferenceZone = systemdate.ReferenceZone
	c.StakeWindow.StartHour = 7
	c.StakeWindow.EndHour = 23
	c.Wallet = wallet.DefaultPolicy()
	c.Schedule = jobs.DefaultSchedule()
	c.Outbox.PollInterval = 5 * time.Second
	c.Outbox.BatchSize = 100
	c.Outbox.HealthThreshold = 5 * time.Minute
	return c
}

func loadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return e, nil
}

// loadConfig overlays the YAML file on the defaults. A missing file keeps
// the defaults.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return config, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if c.StakeWindow.StartHour < 0 || c.StakeWindow.EndHour > 24 || c.StakeWindow.StartHour >= c.StakeWindow.EndHour {
		return fmt.Errorf("invalid stake window %d-%d", c.StakeWindow.StartHour, c.StakeWindow.EndHour)
	}
	if c.Wallet.StakeCap <= 0 || c.Wallet.MaxEntry <= 0 {
		return fmt.Errorf("stake cap and max entry must be positive")
	}
	if c.Wallet.FreeToPlayTopOff.IsNegative() {
		return fmt.Errorf("free-to-play top-off must not be negative")
	}
	for picks, m := range c.PayoutMultipliers {
		if picks < 2 || m <= 0 {
			return fmt.Errorf("invalid payout multiplier %d for %d picks", m, picks)
		}
	}
	return nil
}
