package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// EnvPrefix is the prefix of environment variables that override config keys.
// Nested keys are separated by a double underscore: VIDRELAY_TMDB__API_KEY.
const EnvPrefix = "VIDRELAY_"

// DefaultUserAgent is sent on every outbound request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig   `koanf:"server" validate:"required"`
	TMDB    TMDBConfig     `koanf:"tmdb" validate:"required"`
	Proxy   ProxyConfig    `koanf:"proxy" validate:"required"`
	Cascade CascadeConfig  `koanf:"cascade" validate:"required"`
	Browser BrowserConfig  `koanf:"browser" validate:"required"`
	Sources []SourceConfig `koanf:"sources" validate:"dive"`
	Embeds  []EmbedConfig  `koanf:"embeds" validate:"dive"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"required"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"required"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// TMDBConfig holds metadata API settings. An empty APIKey disables lookups.
type TMDBConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout" validate:"required"`
}

// ProxyConfig holds the outbound proxy service used by fetchers and the relay.
type ProxyConfig struct {
	URL       string        `koanf:"url" validate:"required,url"`
	UserAgent string        `koanf:"user_agent" validate:"required"`
	Timeout   time.Duration `koanf:"timeout" validate:"required"`
}

// CascadeConfig holds resolution cascade settings.
type CascadeConfig struct {
	AggregateTimeout     time.Duration `koanf:"aggregate_timeout" validate:"required"`
	Sources              []string      `koanf:"sources" validate:"required,min=1,dive,required"`
	Fallbacks            []string      `koanf:"fallbacks" validate:"required,min=1"`
	UnavailableFallbacks []string      `koanf:"unavailable_fallbacks"`
}

// BrowserConfig holds settings for headless browser capture.
type BrowserConfig struct {
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	Headless   bool          `koanf:"headless"`
	NoSandbox  bool          `koanf:"no_sandbox"`
	ChromePath string        `koanf:"chrome_path"`
}

// SourceConfig defines a YAML-configured source scraper.
type SourceConfig struct {
	ID        string         `koanf:"id" validate:"required"`
	Name      string         `koanf:"name" validate:"required"`
	Rank      int            `koanf:"rank"`
	Direct    bool           `koanf:"direct"`
	Browser   bool           `koanf:"browser"`
	Templates TemplateConfig `koanf:"templates" validate:"required"`
	Capture   CaptureConfig  `koanf:"capture"`
}

// EmbedConfig defines a YAML-configured embed scraper. Iframes found on
// source pages are routed to the embed whose domains match their host.
type EmbedConfig struct {
	ID      string        `koanf:"id" validate:"required"`
	Name    string        `koanf:"name" validate:"required"`
	Rank    int           `koanf:"rank"`
	Domains []string      `koanf:"domains" validate:"required,min=1"`
	Direct  bool          `koanf:"direct"`
	Browser bool          `koanf:"browser"`
	Capture CaptureConfig `koanf:"capture"`
}

// TemplateConfig holds URL templates for movies and episodes.
// Placeholders: {tmdbId}, {season}, {episode}, {title}, {year}.
type TemplateConfig struct {
	Movie   string `koanf:"movie" validate:"required"`
	Episode string `koanf:"episode" validate:"required"`
}

// CaptureConfig holds patterns for intercepting stream URLs in the browser.
type CaptureConfig struct {
	Extensions       []string      `koanf:"extensions"`
	Substrings       []string      `koanf:"substrings"`
	CollectionWindow time.Duration `koanf:"collection_window"`
}

var defaults = map[string]any{
	"server.addr":                   ":3000",
	"server.read_header_timeout":    "10s",
	"server.shutdown_timeout":       "10s",
	"server.cors_origins":           []string{"*"},
	"tmdb.base_url":                 "https://api.themoviedb.org/3",
	"tmdb.timeout":                  "10s",
	"proxy.user_agent":              DefaultUserAgent,
	"proxy.timeout":                 "15s",
	"cascade.aggregate_timeout":     "30s",
	"cascade.sources":               []string{"8stream", "ee3", "streambox", "soapertv", "whvxMirrors"},
	"cascade.fallbacks":             []string{"videasy.net", "vidlink.pro", "vidsrc.pro"},
	"cascade.unavailable_fallbacks": []string{"superembed"},
	"browser.timeout":               "30s",
	"browser.headless":              true,
}

// Load reads configuration from built-in defaults, the YAML file at path
// (skipped when it does not exist) and VIDRELAY_* environment variables,
// in that order, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
		} else if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("config file not found, using defaults and environment", "path", path)
		} else {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if err := cfg.checkCascadeSources(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// checkCascadeSources ensures every cascade source id names a configured
// source. With no sources configured every lookup fails, which only
// degrades resolution to the fallback players.
func (c *Config) checkCascadeSources() error {
	if len(c.Sources) == 0 {
		slog.Warn("no sources configured, every resolution will fall back", "cascade_sources", c.Cascade.Sources)
		return nil
	}

	known := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		known[s.ID] = true
	}

	var errs []error
	for _, id := range c.Cascade.Sources {
		if !known[id] {
			errs = append(errs, fmt.Errorf("cascade source %q is not a configured source", id))
		}
	}
	return errors.Join(errs...)
}

// envKey maps VIDRELAY_TMDB__API_KEY to tmdb.api_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
