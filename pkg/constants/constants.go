package constants

import "time"

// Message length limits for different platforms
const (
	// MaxSlackMessageLength is Slack's chat.postMessage text limit
	MaxSlackMessageLength = 40000
	// MaxDiscordMessageLength is Discord's message character limit
	MaxDiscordMessageLength = 2000
	// MaxTelegramMessageLength is Telegram's message character limit
	MaxTelegramMessageLength = 4096
	// MaxFeishuMessageLength is Feishu's message character limit
	MaxFeishuMessageLength = 20000
	// MaxDingTalkMessageLength is DingTalk's message character limit
	MaxDingTalkMessageLength = 20000
)

// Timeouts and delays
const (
	// DefaultPollTimeout is the timeout for Telegram long polling
	DefaultPollTimeout = 60 * time.Second
	// DefaultFetchTimeout bounds a single outbound fetch request
	DefaultFetchTimeout = 10 * time.Second
	// StreamConnectDelay gives websocket stream clients time to connect
	StreamConnectDelay = 2 * time.Second
	// ShutdownTimeout bounds graceful shutdown of the announce server
	ShutdownTimeout = 5 * time.Second
)

// Message buffer sizes
const (
	// MessageChannelBufferSize is the buffer size for the inbound message channel
	MessageChannelBufferSize = 100
)

// Fetcher limits
const (
	// MaxResponseBodySize caps bytes read from an outbound response
	MaxResponseBodySize = 2 << 20
	// DefaultRequestsPerSecond throttles outbound fetches
	DefaultRequestsPerSecond = 5
	// DefaultRequestBurst is the limiter burst size
	DefaultRequestBurst = 4
	// RestaurantSampleSize is the maximum number of recommended links
	RestaurantSampleSize = 5
	// RestaurantPageSize is the offset step between search result pages
	RestaurantPageSize = 10
)

// Fortune provider ids
const (
	// FortuneZodiacID selects the Chinese zodiac scheme
	FortuneZodiacID = 103
	// FortuneAlternateID selects the alternate (constellation) scheme
	FortuneAlternateID = 105
)

// Secret masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply masking
	MinSecretLengthForMasking = 8
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// HTTP
const (
	// UserAgent is sent with every outbound fetch
	UserAgent = "Mozilla/5.0 (compatible; tubebot/1.0)"
)
