package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds the client's runtime settings.
type Config struct {
	APIURL     string `env:"KATALOG_API_URL,default=http://localhost:3000/api"`
	DBPath     string `env:"KATALOG_DB,default=katalog.sqlite3"`
	ListenAddr string `env:"KATALOG_ADDR,default=127.0.0.1:8080"`
	LogLevel   string `env:"KATALOG_LOG_LEVEL,default=info"`
	LogFile    string `env:"KATALOG_LOG_FILE"`

	Timeout   time.Duration `env:"KATALOG_TIMEOUT,default=30s"`
	RateLimit float64       `env:"KATALOG_RATE_LIMIT,default=0"`

	// UX pacing.
	CloseDelay    time.Duration `env:"KATALOG_CLOSE_DELAY,default=1s"`
	ReloadDelay   time.Duration `env:"KATALOG_RELOAD_DELAY,default=500ms"`
	FlashDuration time.Duration `env:"KATALOG_FLASH_DURATION,default=3s"`
}

// Load reads envFile (when it exists) into the environment and decodes the
// configuration from it. Variables already set in the environment win over
// the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API URL %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.CloseDelay < 0 || c.ReloadDelay < 0 || c.FlashDuration < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}
