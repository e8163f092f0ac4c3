package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default upstream endpoint and branch of the jeweller's rate service.
const (
	DefaultUpstreamBaseURL = "https://froads.trysumangaleejewellers.in"
	DefaultUpstreamBranch  = "ecc71e26-1691-11ea-b1f7-00016cd7cb45"
	DefaultTitle           = "AMR Price Tracker"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		BaseURL     string   `yaml:"base_url"`
		CORSOrigins []string `yaml:"cors_origins"`
		ImageDir    string   `yaml:"image_dir"`
	} `yaml:"server"`
	Upstream struct {
		BaseURL string        `yaml:"base_url"`
		Branch  string        `yaml:"branch"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"upstream"`
	Slack struct {
		BotToken      string `yaml:"bot_token"`
		APIURL        string `yaml:"api_url"`
		DigestChannel string `yaml:"digest_channel"`
		Title         string `yaml:"title"`
	} `yaml:"slack"`
	Schedule struct {
		DigestCron string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file if one exists, then the YAML file at path, then
// applies environment variable overrides and defaults. A missing YAML file
// is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("IMAGE_DIR"); v != "" {
		cfg.Server.ImageDir = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_BRANCH"); v != "" {
		cfg.Upstream.Branch = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.Upstream.Timeout = d
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_API_URL"); v != "" {
		cfg.Slack.APIURL = v
	}
	if v := os.Getenv("DIGEST_CHANNEL"); v != "" {
		cfg.Slack.DigestChannel = v
	}
	if v := os.Getenv("DIGEST_CRON"); v != "" {
		cfg.Schedule.DigestCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.ImageDir == "" {
		cfg.Server.ImageDir = "data/images"
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.Branch == "" {
		cfg.Upstream.Branch = DefaultUpstreamBranch
	}
	if cfg.Slack.Title == "" {
		cfg.Slack.Title = DefaultTitle
	}
	if cfg.Schedule.DigestCron == "" {
		cfg.Schedule.DigestCron = "0 0 10 * * *"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("upstream.base_url is invalid: %w", err)
	}
	if c.Upstream.Branch == "" {
		return fmt.Errorf("upstream.branch is required")
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout must not be negative")
	}
	if c.Slack.DigestChannel != "" && c.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required when slack.digest_channel is set")
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return fmt.Errorf("proxy is invalid: %w", err)
		}
	}
	return nil
}

// SlackEnabled reports whether the chat surface is configured.
func (c *Config) SlackEnabled() bool {
	return c.Slack.BotToken != ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
