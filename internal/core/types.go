package core

// Config represents the complete tubebot configuration structure
type Config struct {
	BotName        string               `yaml:"bot_name"`
	HomeChannel    string               `yaml:"home_channel"` // Channel announcements and rerouted bot replies go to
	Timezone       string               `yaml:"timezone"`     // IANA zone for quiet hours and cron jobs
	Bots           map[string]BotConfig `yaml:"bots"`
	Security       SecurityConfig       `yaml:"security"`
	Payload        PayloadConfig        `yaml:"payload"`
	Scheduler      SchedulerConfig      `yaml:"scheduler"`
	AnnounceServer AnnounceServerConfig `yaml:"announce_server"`
	Fetchers       FetchersConfig       `yaml:"fetchers"`
	Replies        RepliesConfig        `yaml:"replies"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// BotConfig represents bot configuration
type BotConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Token             string `yaml:"token"`              // Slack bot token, Discord/Telegram token
	AppToken          string `yaml:"app_token"`          // Slack: app-level token for socket mode
	AppID             string `yaml:"app_id"`             // Feishu app id, DingTalk client id
	AppSecret         string `yaml:"app_secret"`         // Feishu app secret, DingTalk client secret
	ChannelID         string `yaml:"channel_id"`         // Overrides home_channel for this bot
	EncryptKey        string `yaml:"encrypt_key"`        // Feishu: event encryption key (optional)
	VerificationToken string `yaml:"verification_token"` // Feishu: verification token (optional)
}

// SecurityConfig controls which bot-originated messages are routed
type SecurityConfig struct {
	AllowedBotIDs      []string `yaml:"allowed_bot_ids"`
	RerouteBotMessages *bool    `yaml:"reroute_bot_messages"` // Default: true
}

// PayloadConfig is attached to every outgoing message on platforms that support it
type PayloadConfig struct {
	IconURL   string `yaml:"icon_url"`
	IconEmoji string `yaml:"icon_emoji"`
	Username  string `yaml:"username"`
}

// SchedulerConfig represents the fixed cron announcements
type SchedulerConfig struct {
	Enabled bool        `yaml:"enabled"`
	Jobs    []JobConfig `yaml:"jobs"`
}

// JobConfig is one cron announcement
type JobConfig struct {
	Spec    string `yaml:"spec"` // Six fields: sec min hour dom month dow
	Message string `yaml:"message"`
}

// AnnounceServerConfig represents the HTTP announce endpoint
type AnnounceServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// FetchersConfig represents the outbound data sources
type FetchersConfig struct {
	FortuneURL         string  `yaml:"fortune_url"`
	RestaurantURL      string  `yaml:"restaurant_url"`
	RestaurantSelector string  `yaml:"restaurant_selector"`
	RestaurantKeyword  string  `yaml:"restaurant_keyword"`
	RestaurantPages    int     `yaml:"restaurant_pages"`
	LunchURL           string  `yaml:"lunch_url"` // Empty disables the lunch rules
	RequestsPerSecond  float64 `yaml:"requests_per_second"`
	RequestBurst       int     `yaml:"request_burst"`
	Timeout            string  `yaml:"timeout"`
}

// RepliesConfig represents fixed reply texts
type RepliesConfig struct {
	Fallback  string `yaml:"fallback"`
	Hospital  string `yaml:"hospital"`
	QuietHour int    `yaml:"quiet_hour"` // Local hour from which the hospital reply is muted
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	File         string `yaml:"file"`          // Log file path
	MaxSize      int    `yaml:"max_size"`      // Single file max size in MB (default: 100)
	MaxBackups   int    `yaml:"max_backups"`   // Number of backups to keep (default: 5)
	MaxAge       int    `yaml:"max_age"`       // Maximum days to retain (default: 30)
	Compress     *bool  `yaml:"compress"`      // Whether to compress old logs (default: true)
	EnableStdout *bool  `yaml:"enable_stdout"` // Also output to stdout (default: true)
}
