package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent identifies this client to both subtitle providers.
const DefaultUserAgent = "CiefpOpenSubtitles/2.0"

// DefaultConfigDir is where the settings file and credential files live on
// the receiver. Overridable for tests and desktop use.
const DefaultConfigDir = "/etc/enigma2/ciefpopensubtitles"

type Config struct {
	Backend       string   `mapstructure:"backend"`   // "rest" or "legacy"
	Languages     []string `mapstructure:"languages"` // priority order, 2- or 3-letter codes
	SavePath      string   `mapstructure:"save_path"`
	SortBy        string   `mapstructure:"sort_by"` // downloads, year, rating, fps
	RequireHD     bool     `mapstructure:"require_hd"`
	HearingOption string   `mapstructure:"hearing_impaired"` // any, require, forbid
	AutoDownload  bool     `mapstructure:"auto_download"`
	MultiLanguage bool     `mapstructure:"multi_lang_download"`
	DownloadDelay string   `mapstructure:"download_delay"` // Go duration string between downloads
	ResultLimit   int      `mapstructure:"result_limit"`
	ClientTimeout string   `mapstructure:"client_timeout"` // Go duration string like "30s"
	UserAgent     string   `mapstructure:"user_agent"`
	LogLevel      string   `mapstructure:"log_level"`

	Search struct {
		MaxRetries        int    `mapstructure:"max_retries"`
		RetryDelay        string `mapstructure:"retry_delay"`         // base backoff, doubled per attempt
		RateLimitCooldown string `mapstructure:"rate_limit_cooldown"` // wait when the provider gave no Retry-After
	} `mapstructure:"search"`

	Match struct {
		MinScore float64 `mapstructure:"min_score"`
	} `mapstructure:"match"`

	Cache struct {
		Size int    `mapstructure:"size"` // maximum number of cached download payloads
		TTL  string `mapstructure:"ttl"`  // Go duration string like "1h"
	} `mapstructure:"cache"`

	REST struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"rest"`

	Legacy struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"legacy"`
}

var logger zerolog.Logger

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// Load reads the settings file from dir (falling back to the working
// directory) with environment overrides, applies defaults, and configures the
// global log level.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(DefaultConfigDir)
	v.AddConfigPath(".")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("SUBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	applyLogLevel(config.LogLevel)
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "rest")
	v.SetDefault("languages", []string{"sr", "hr"})
	v.SetDefault("save_path", "/media/hdd/subtitles")
	v.SetDefault("sort_by", "downloads")
	v.SetDefault("require_hd", false)
	v.SetDefault("hearing_impaired", "any")
	v.SetDefault("auto_download", false)
	v.SetDefault("multi_lang_download", false)
	v.SetDefault("download_delay", "20s")
	v.SetDefault("result_limit", 50)
	v.SetDefault("client_timeout", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.retry_delay", "1s")
	v.SetDefault("search.rate_limit_cooldown", "10s")
	v.SetDefault("match.min_score", 0.5)
	v.SetDefault("cache.size", 100)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("rest.base_url", "https://api.opensubtitles.com/api/v1")
	v.SetDefault("legacy.base_url", "https://www.opensubtitles.org")
}

func applyLogLevel(configured string) {
	level := zerolog.InfoLevel // default
	if configured != "" {
		if parsedLevel, err := zerolog.ParseLevel(configured); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", configured).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)
}

// GetLogger returns the shared application logger.
func GetLogger() zerolog.Logger {
	return logger
}

// durationOr parses a Go duration string, falling back to def on empty or
// invalid input.
func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		logger.Warn().Err(err).Str("duration", s).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return parsed
}

// ClientTimeoutDuration returns the per-request timeout for backend calls.
func (c *Config) ClientTimeoutDuration() time.Duration {
	return durationOr(c.ClientTimeout, 30*time.Second)
}

// DownloadDelayDuration returns the pause between successive downloads in
// multi-language mode.
func (c *Config) DownloadDelayDuration() time.Duration {
	return durationOr(c.DownloadDelay, 20*time.Second)
}

// RetryDelayDuration returns the base backoff delay between search retries.
func (c *Config) RetryDelayDuration() time.Duration {
	return durationOr(c.Search.RetryDelay, time.Second)
}

// RateLimitCooldownDuration returns the wait enforced after a rate-limit
// response that carried no Retry-After hint.
func (c *Config) RateLimitCooldownDuration() time.Duration {
	return durationOr(c.Search.RateLimitCooldown, 10*time.Second)
}

// CacheTTLDuration returns how long fetched payloads stay cached.
func (c *Config) CacheTTLDuration() time.Duration {
	return durationOr(c.Cache.TTL, time.Hour)
}
