package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/newsd/internal/validation"
)

const (
	StrategyFirstArticle = "first-article"
	StrategyActiveUsers  = "active-users"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Users     UsersConfig     `mapstructure:"users"`
	Log       LogConfig       `mapstructure:"log"`
	UI        UIConfig        `mapstructure:"ui"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimit uses the limiter format, e.g. "120-M". Empty disables it.
	RateLimit string `mapstructure:"rate_limit"`
}

type AuthConfig struct {
	// JWTSecret signs tokens. Empty generates a per-process secret.
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type CacheConfig struct {
	TTL                    time.Duration `mapstructure:"ttl"`
	FetchTimeout           time.Duration `mapstructure:"fetch_timeout"`
	MaxConcurrentFetches   int           `mapstructure:"max_concurrent_fetches"`
	DefaultTopic           string        `mapstructure:"default_topic"`
	EmptyOnUpstreamFailure bool          `mapstructure:"empty_on_upstream_failure"`
}

type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Interval defaults to the cache TTL when zero.
	Interval time.Duration `mapstructure:"interval"`
	Strategy string        `mapstructure:"strategy"`
}

type ProviderConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	// AllowPrivateUpstreams permits loopback and private network upstreams.
	AllowPrivateUpstreams bool          `mapstructure:"allow_private_upstreams"`
	NewsAPI               NewsAPIConfig `mapstructure:"newsapi"`
	RSS                   RSSConfig     `mapstructure:"rss"`
}

type NewsAPIConfig struct {
	APIKey     string   `mapstructure:"api_key"`
	BaseURL    string   `mapstructure:"base_url"`
	Country    string   `mapstructure:"country"`
	PageSize   int      `mapstructure:"page_size"`
	Categories []string `mapstructure:"categories"`
}

type RSSConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	FeedsFile    string `mapstructure:"feeds_file"`
	ItemsPerFeed int    `mapstructure:"items_per_feed"`
}

type UsersConfig struct {
	DefaultPreferences []string `mapstructure:"default_preferences"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors"`
	Article ArticleConfig `mapstructure:"article"`
	Media   MediaConfig   `mapstructure:"media"`
	// RefreshEvery is how often the dashboard polls the cache.
	RefreshEvery time.Duration `mapstructure:"refresh_every"`
}

// MediaConfig picks the programs the dashboard opens article links with.
// Each list is tried in order; the first one on PATH wins.
type MediaConfig struct {
	// DefaultOpener handles web pages and anything without a player.
	// Empty means the platform opener (open, xdg-open, rundll32).
	DefaultOpener string   `mapstructure:"default_opener"`
	Video         []string `mapstructure:"video"`
	Audio         []string `mapstructure:"audio"`
	Image         []string `mapstructure:"image"`
	PDF           []string `mapstructure:"pdf"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ArticleConfig struct {
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       "120-M",
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Cache: CacheConfig{
			TTL:                  5 * time.Minute,
			FetchTimeout:         10 * time.Second,
			MaxConcurrentFetches: 5,
			DefaultTopic:         "general",
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Strategy: StrategyFirstArticle,
		},
		Provider: ProviderConfig{
			HTTPTimeout: 15 * time.Second,
			UserAgent:   "newsd/1.0 (https://github.com/pders01/newsd)",
			NewsAPI: NewsAPIConfig{
				BaseURL:  "https://newsapi.org",
				Country:  "us",
				PageSize: 5,
				Categories: []string{
					"business", "entertainment", "general", "health", "science", "sports", "technology",
				},
			},
			RSS: RSSConfig{
				Enabled:      true,
				ItemsPerFeed: 10,
			},
		},
		Users: UsersConfig{
			DefaultPreferences: []string{"movies", "comics"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Article: ArticleConfig{
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
			Media: MediaConfig{
				Video: []string{"mpv", "vlc"},
				Audio: []string{"mpv", "vlc"},
				Image: []string{"imv", "feh"},
				PDF:   []string{"zathura", "evince"},
			},
			RefreshEvery: time.Second,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// setDefaults registers every leaf key so environment overrides resolve
// even when no config file mentions them.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

// flatten maps each config key to its value, durations as strings.
func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"server.addr":             cfg.Server.Addr,
		"server.read_timeout":     cfg.Server.ReadTimeout.String(),
		"server.write_timeout":    cfg.Server.WriteTimeout.String(),
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		"server.rate_limit":       cfg.Server.RateLimit,

		"auth.jwt_secret":  cfg.Auth.JWTSecret,
		"auth.token_ttl":   cfg.Auth.TokenTTL.String(),
		"auth.bcrypt_cost": cfg.Auth.BcryptCost,

		"cache.ttl":                       cfg.Cache.TTL.String(),
		"cache.fetch_timeout":             cfg.Cache.FetchTimeout.String(),
		"cache.max_concurrent_fetches":    cfg.Cache.MaxConcurrentFetches,
		"cache.default_topic":             cfg.Cache.DefaultTopic,
		"cache.empty_on_upstream_failure": cfg.Cache.EmptyOnUpstreamFailure,

		"scheduler.enabled":  cfg.Scheduler.Enabled,
		"scheduler.interval": cfg.Scheduler.Interval.String(),
		"scheduler.strategy": cfg.Scheduler.Strategy,

		"provider.http_timeout":            cfg.Provider.HTTPTimeout.String(),
		"provider.user_agent":              cfg.Provider.UserAgent,
		"provider.allow_private_upstreams": cfg.Provider.AllowPrivateUpstreams,
		"provider.newsapi.api_key":         cfg.Provider.NewsAPI.APIKey,
		"provider.newsapi.base_url":        cfg.Provider.NewsAPI.BaseURL,
		"provider.newsapi.country":         cfg.Provider.NewsAPI.Country,
		"provider.newsapi.page_size":       cfg.Provider.NewsAPI.PageSize,
		"provider.newsapi.categories":      cfg.Provider.NewsAPI.Categories,
		"provider.rss.enabled":             cfg.Provider.RSS.Enabled,
		"provider.rss.feeds_file":          cfg.Provider.RSS.FeedsFile,
		"provider.rss.items_per_feed":      cfg.Provider.RSS.ItemsPerFeed,

		"users.default_preferences": cfg.Users.DefaultPreferences,

		"log.level":  cfg.Log.Level,
		"log.format": cfg.Log.Format,
		"log.file":   cfg.Log.File,

		"ui.colors.primary":              cfg.UI.Colors.Primary,
		"ui.colors.secondary":            cfg.UI.Colors.Secondary,
		"ui.colors.accent":               cfg.UI.Colors.Accent,
		"ui.colors.background":           cfg.UI.Colors.Background,
		"ui.colors.surface":              cfg.UI.Colors.Surface,
		"ui.colors.text":                 cfg.UI.Colors.Text,
		"ui.colors.muted":                cfg.UI.Colors.Muted,
		"ui.colors.error":                cfg.UI.Colors.Error,
		"ui.colors.success":              cfg.UI.Colors.Success,
		"ui.article.word_wrap_max_width": cfg.UI.Article.WordWrapMaxWidth,
		"ui.article.word_wrap_min_width": cfg.UI.Article.WordWrapMinWidth,
		"ui.media.default_opener":        cfg.UI.Media.DefaultOpener,
		"ui.media.video":                 cfg.UI.Media.Video,
		"ui.media.audio":                 cfg.UI.Media.Audio,
		"ui.media.image":                 cfg.UI.Media.Image,
		"ui.media.pdf":                   cfg.UI.Media.PDF,
		"ui.refresh_every":               cfg.UI.RefreshEvery.String(),
	}
}

// Load reads configuration from configPath, or from config.toml in
// ~/.config/newsd or the working directory. Environment variables prefixed
// NEWSD_ override file values (NEWSD_CACHE_TTL for cache.ttl); NEWS_API_KEY
// and JWT_SECRET are honored as well.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "newsd")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NEWSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("provider.newsapi.api_key", "NEWSD_PROVIDER_NEWSAPI_API_KEY", "NEWS_API_KEY")
	_ = v.BindEnv("auth.jwt_secret", "NEWSD_AUTH_JWT_SECRET", "JWT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.resolvePaths(validation.NewFilePathValidator()); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive")
	}
	if c.Cache.FetchTimeout <= 0 {
		return fmt.Errorf("config: cache.fetch_timeout must be positive")
	}
	if c.Cache.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("config: cache.max_concurrent_fetches must be positive")
	}
	if c.Scheduler.Interval < 0 {
		return fmt.Errorf("config: scheduler.interval cannot be negative")
	}
	switch c.Scheduler.Strategy {
	case StrategyFirstArticle, StrategyActiveUsers:
	default:
		return fmt.Errorf("config: unknown scheduler.strategy %q", c.Scheduler.Strategy)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// resolvePaths expands and validates the file paths the service opens.
func (c *Config) resolvePaths(v *validation.FilePathValidator) error {
	paths := map[string]*string{
		"provider.rss.feeds_file": &c.Provider.RSS.FeedsFile,
		"log.file":                &c.Log.File,
	}
	for key, p := range paths {
		if *p == "" {
			continue
		}
		clean, err := v.ValidateFile(*p)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*p = clean
	}
	return nil
}

// Save writes config as TOML. Secrets are written as they are; callers that
// share the file should blank them first.
func Save(config *Config, path string) error {
	v := viper.New()
	for key, value := range flatten(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
