// Package core provides the central engine and configuration management for tubebot.
//
// The core package connects chat platforms with the reply router. It handles:
//
//   - Configuration loading and validation (from YAML files)
//   - Message filtering and routing between bots and the router
//   - Fixed cron announcements
//   - HTTP announce server for posting messages from outside
//   - Graceful shutdown and cleanup
//
// # Configuration
//
// Configuration is loaded from a YAML file with the following main sections:
//
//   - bots: IM platform bot configurations
//   - security: which bot-originated messages are routed
//   - payload: icon and display name attached to replies
//   - scheduler: cron announcements
//   - announce_server: HTTP announce endpoint
//   - fetchers: fortune, restaurant and lunch sources
//   - replies: fallback and fixed replies
//   - logging: Log configuration
//
// # Example Configuration
//
//	bot_name: tube-bot
//	home_channel: general
//	timezone: Asia/Seoul
//	bots:
//	  slack:
//	    enabled: true
//	    token: "${SLACK_BOT_TOKEN}"
//	    app_token: "${SLACK_APP_TOKEN}"
//	scheduler:
//	  enabled: true
package core

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // default timezone must load in minimal containers

	"github.com/caarlos0/env/v11"
	"github.com/keepmind9/tubebot/internal/bot"
	"github.com/keepmind9/tubebot/internal/router"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBotName         = "tube-bot"
	DefaultHomeChannel     = "general"
	DefaultTimezone        = "Asia/Seoul"
	DefaultAnnouncePort    = 8080
	DefaultFetchTimeout    = "10s"
	DefaultIconURL         = "https://avatars.slack-edge.com/2017-01-27/132579999137_0a067c94a9a07d7de352_72.png"
	DefaultLogLevel        = "info"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAge       = 30 // days
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true
)

// supportedBots lists the bot types an adapter exists for
var supportedBots = map[string]struct{}{
	"slack":    {},
	"discord":  {},
	"telegram": {},
	"feishu":   {},
	"dingtalk": {},
}

// envOverrides are read from the process environment after the file is parsed
type envOverrides struct {
	LogLevel    string `env:"TUBEBOT_LOG_LEVEL"`
	HomeChannel string `env:"TUBEBOT_HOME_CHANNEL"`
	Timezone    string `env:"TUBEBOT_TIMEZONE"`
}

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data, applies environment overrides
// and defaults, and validates the result
func ParseConfig(data []byte) (*Config, error) {
	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

func applyEnvOverrides(config *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if o.LogLevel != "" {
		config.Logging.Level = o.LogLevel
	}
	if o.HomeChannel != "" {
		config.HomeChannel = o.HomeChannel
	}
	if o.Timezone != "" {
		config.Timezone = o.Timezone
	}
	return nil
}

// validateConfig fills defaults and performs validation on the configuration
func validateConfig(config *Config) error {
	if config.BotName == "" {
		config.BotName = DefaultBotName
	}
	if config.HomeChannel == "" {
		config.HomeChannel = DefaultHomeChannel
	}
	if config.Timezone == "" {
		config.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(config.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.Timezone, err)
	}

	if config.Payload.IconURL == "" && config.Payload.IconEmoji == "" {
		config.Payload.IconURL = DefaultIconURL
	}
	if config.Payload.Username == "" {
		config.Payload.Username = config.BotName
	}

	if config.AnnounceServer.Port == 0 {
		config.AnnounceServer.Port = DefaultAnnouncePort
	}
	if config.AnnounceServer.Port < 0 || config.AnnounceServer.Port > 65535 {
		return fmt.Errorf("announce_server.port out of range: %d", config.AnnounceServer.Port)
	}

	if config.Fetchers.Timeout == "" {
		config.Fetchers.Timeout = DefaultFetchTimeout
	}
	if _, err := time.ParseDuration(config.Fetchers.Timeout); err != nil {
		return fmt.Errorf("invalid fetchers.timeout: %w", err)
	}
	if config.Fetchers.RequestsPerSecond < 0 {
		return fmt.Errorf("fetchers.requests_per_second cannot be negative")
	}
	if config.Fetchers.RestaurantPages < 0 {
		return fmt.Errorf("fetchers.restaurant_pages cannot be negative")
	}

	if config.Replies.Fallback == "" {
		config.Replies.Fallback = router.DefaultFallback
	}
	if config.Replies.QuietHour == 0 {
		config.Replies.QuietHour = router.DefaultQuietHour
	}
	if config.Replies.QuietHour < 1 || config.Replies.QuietHour > 23 {
		return fmt.Errorf("replies.quiet_hour must be between 1 and 23 (got %d)", config.Replies.QuietHour)
	}

	if config.Scheduler.Enabled && len(config.Scheduler.Jobs) == 0 {
		config.Scheduler.Jobs = DefaultJobs()
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for i, job := range config.Scheduler.Jobs {
		if _, err := parser.Parse(job.Spec); err != nil {
			return fmt.Errorf("invalid cron spec for scheduler.jobs[%d]: %w", i, err)
		}
		if strings.TrimSpace(job.Message) == "" {
			return fmt.Errorf("scheduler.jobs[%d] has an empty message", i)
		}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = DefaultLogMaxAge
	}
	if config.Logging.Compress == nil {
		compress := DefaultLogCompress
		config.Logging.Compress = &compress
	}
	if config.Logging.EnableStdout == nil {
		stdout := DefaultLogEnableStdout
		config.Logging.EnableStdout = &stdout
	}

	if len(config.Bots) == 0 {
		return fmt.Errorf("at least one bot must be configured")
	}
	for botType, botConfig := range config.Bots {
		if err := validateBotConfig(botType, botConfig); err != nil {
			return err
		}
	}

	return nil
}

// validateBotConfig checks that an enabled bot carries the credentials its adapter needs
func validateBotConfig(botType string, b BotConfig) error {
	if _, ok := supportedBots[botType]; !ok {
		return fmt.Errorf("unsupported bot type: %s", botType)
	}
	if !b.Enabled {
		return nil
	}

	switch botType {
	case "slack":
		if b.Token == "" || b.AppToken == "" {
			return fmt.Errorf("bots.slack requires token and app_token")
		}
	case "discord", "telegram":
		if b.Token == "" {
			return fmt.Errorf("bots.%s requires token", botType)
		}
	case "feishu", "dingtalk":
		if b.AppID == "" || b.AppSecret == "" {
			return fmt.Errorf("bots.%s requires app_id and app_secret", botType)
		}
	}
	return nil
}

// GetBotConfig retrieves configuration for a specific bot
func (c *Config) GetBotConfig(botType string) (BotConfig, error) {
	botConfig, exists := c.Bots[botType]
	if !exists {
		return BotConfig{}, fmt.Errorf("bot type %s not found in configuration", botType)
	}

	if !botConfig.Enabled {
		return BotConfig{}, fmt.Errorf("bot type %s is disabled", botType)
	}

	return botConfig, nil
}

// HomeChannelFor returns the home channel of a bot, falling back to home_channel
func (c *Config) HomeChannelFor(botType string) string {
	if botConfig, ok := c.Bots[botType]; ok && botConfig.ChannelID != "" {
		return botConfig.ChannelID
	}
	return c.HomeChannel
}

// IsBotAllowed reports whether messages from botID are routed
func (c *Config) IsBotAllowed(botID string) bool {
	for _, id := range c.Security.AllowedBotIDs {
		if id == botID {
			return true
		}
	}
	return false
}

// RerouteBotMessages reports whether replies to bot messages go to the home channel
func (c *Config) RerouteBotMessages() bool {
	if c.Security.RerouteBotMessages == nil {
		return true
	}
	return *c.Security.RerouteBotMessages
}

// LogCompress reports whether rotated log files are compressed
func (c *Config) LogCompress() bool {
	if c.Logging.Compress == nil {
		return DefaultLogCompress
	}
	return *c.Logging.Compress
}

// LogEnableStdout reports whether logs are also written to stdout
func (c *Config) LogEnableStdout() bool {
	if c.Logging.EnableStdout == nil {
		return DefaultLogEnableStdout
	}
	return *c.Logging.EnableStdout
}

// Location returns the configured time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FetchTimeout returns the parsed fetcher timeout
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Fetchers.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultFetchTimeout)
	}
	return d
}

// PayloadExtras returns the payload as OutboundMessage extras
func (c *Config) PayloadExtras() map[string]string {
	extra := make(map[string]string, 3)
	if c.Payload.IconURL != "" {
		extra[bot.ExtraIconURL] = c.Payload.IconURL
	}
	if c.Payload.IconEmoji != "" {
		extra[bot.ExtraIconEmoji] = c.Payload.IconEmoji
	}
	if c.Payload.Username != "" {
		extra[bot.ExtraUsername] = c.Payload.Username
	}
	return extra
}
