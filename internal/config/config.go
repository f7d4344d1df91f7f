package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "TRENDSENSE_CONFIG"
	databasePathEnv    = "DATABASE_PATH"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	geminiModelEnv     = "GEMINI_MODEL"
	newsAPIKeyEnv      = "NEWS_API_KEY"
	redditClientIDEnv  = "REDDIT_CLIENT_ID"
	redditSecretEnv    = "REDDIT_CLIENT_SECRET"
	redditUserAgentEnv = "REDDIT_USER_AGENT"
	keywordsEnv        = "KEYWORDS"
	newsLimitEnv       = "NEWS_LIMIT"
	discussionLimitEnv = "DISCUSSION_LIMIT"
	serverHostEnv      = "SERVER_HOST"
	serverPortEnv      = "SERVER_PORT"
	demoModeEnv        = "DEMO_MODE"
	logLevelEnv        = "LOG_LEVEL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Server        ServerConfig       `yaml:"server"`
	ETL           ETLConfig          `yaml:"etl"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	News          NewsConfig         `yaml:"news"`
	Reddit        RedditConfig       `yaml:"reddit"`
	Notifications NotificationConfig `yaml:"notifications"`
	Demo          DemoConfig         `yaml:"demo"`
}

// LoggingConfig controls slog handler construction.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes where the SQLite store lives.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds the HTTP bind address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Duration wraps time.Duration so YAML values like "10s" parse directly.
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ETLConfig tunes the pipeline: default keywords, per-source caps, pacing
// between scoring calls, and the optional recurring-run interval.
type ETLConfig struct {
	Keywords        []string `yaml:"keywords"`
	NewsLimit       int      `yaml:"newsLimit"`
	DiscussionLimit int      `yaml:"discussionLimit"`
	Pacing          Duration `yaml:"pacing"`
	RunInterval     Duration `yaml:"runInterval"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// NewsConfig wires the news-search provider.
type NewsConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// RedditConfig wires the discussion-search provider.
type RedditConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	UserAgent    string `yaml:"userAgent"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run summaries.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// DemoConfig is the explicit toggle for demo mode: mock scoring plus
// backdated timestamps so charts have data spread without external calls.
type DemoConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.ETL.Keywords) == 0 {
		cfg.ETL.Keywords = defaultConfig().ETL.Keywords
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv(redditClientIDEnv); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv(redditSecretEnv); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv(redditUserAgentEnv); v != "" {
		c.Reddit.UserAgent = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(keywordsEnv); v != "" {
		c.ETL.Keywords = splitKeywords(v)
	}
	if v := os.Getenv(newsLimitEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ETL.NewsLimit = n
		}
	}
	if v := os.Getenv(discussionLimitEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ETL.DiscussionLimit = n
		}
	}
	if v := os.Getenv(serverHostEnv); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(serverPortEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv(demoModeEnv); v != "" {
		c.Demo.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Server.Host != "" {
		base.Server.Host = override.Server.Host
	}
	if override.Server.Port != 0 {
		base.Server.Port = override.Server.Port
	}

	if len(override.ETL.Keywords) > 0 {
		base.ETL.Keywords = override.ETL.Keywords
	}
	if override.ETL.NewsLimit != 0 {
		base.ETL.NewsLimit = override.ETL.NewsLimit
	}
	if override.ETL.DiscussionLimit != 0 {
		base.ETL.DiscussionLimit = override.ETL.DiscussionLimit
	}
	if override.ETL.Pacing != 0 {
		base.ETL.Pacing = override.ETL.Pacing
	}
	if override.ETL.RunInterval != 0 {
		base.ETL.RunInterval = override.ETL.RunInterval
	}

	if override.Gemini.Endpoint != "" {
		base.Gemini.Endpoint = override.Gemini.Endpoint
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}

	if override.News.Endpoint != "" {
		base.News.Endpoint = override.News.Endpoint
	}
	if override.News.APIKey != "" {
		base.News.APIKey = override.News.APIKey
	}

	if override.Reddit.ClientID != "" {
		base.Reddit.ClientID = override.Reddit.ClientID
	}
	if override.Reddit.ClientSecret != "" {
		base.Reddit.ClientSecret = override.Reddit.ClientSecret
	}
	if override.Reddit.UserAgent != "" {
		base.Reddit.UserAgent = override.Reddit.UserAgent
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Demo.Enabled {
		base.Demo.Enabled = true
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data/sentiments.db"},
		Server:   ServerConfig{Host: "127.0.0.1", Port: 5000},
		ETL: ETLConfig{
			Keywords:        []string{"Next.js", "TypeScript", "AI", "React", "Python"},
			NewsLimit:       10,
			DiscussionLimit: 10,
			Pacing:          Duration(10 * time.Second),
		},
		Gemini: GeminiConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    "gemini-2.0-flash",
		},
		News: NewsConfig{
			Endpoint: "https://newsapi.org/v2/everything",
		},
		Reddit: RedditConfig{
			UserAgent: "TrendSense/1.0",
		},
	}
}
