// Package bot provides bot adapters for the chat platforms tubebot can
// listen on.
//
// Every adapter turns platform events into BotMessage values and posts
// OutboundMessage values back. Slack (socket mode) is the primary platform;
// Discord, Telegram, Feishu (Lark) and DingTalk use the same interface.
//
// # Usage
//
//	slackBot := bot.NewSlackBot(botToken, appToken, "general")
//	err := slackBot.Start(func(msg bot.BotMessage) {
//		fmt.Printf("Received: %s\n", msg.Text())
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	slackBot.SendMessage(bot.OutboundMessage{Content: "Hello", Channel: msg.Channel})
//	slackBot.Stop()
//
// # Thread Safety
//
// Adapters guard their connection state with a mutex. The message handler
// may be called concurrently from the platform SDK's goroutines.
package bot

import (
	"strings"
	"time"
)

// Keys understood in OutboundMessage.Extra.
const (
	ExtraIconURL   = "icon_url"
	ExtraIconEmoji = "icon_emoji"
	ExtraUsername  = "username"
)

// BotAdapter defines the interface for bot adapters
type BotAdapter interface {
	// Start connects to the platform and begins delivering messages to messageHandler
	Start(messageHandler func(BotMessage)) error

	// SendMessage posts msg. The channel wins over the user when both are
	// set; with neither, the adapter's home channel is used. Adapters
	// truncate to platform limits.
	SendMessage(msg OutboundMessage) error

	// Stop disconnects and releases resources
	Stop() error
}

// Attachment is a rich-content block carried by a message.
type Attachment struct {
	Text     string
	ImageURL string
}

// BotMessage represents an inbound chat message
type BotMessage struct {
	Platform    string // slack/discord/telegram/feishu/dingtalk
	UserID      string
	UserName    string
	Channel     string // Channel/chat ID replies go to
	ChannelName string
	BotID       string // Set when the message was posted by a bot or integration
	Content     string
	Attachments []Attachment
	Timestamp   time.Time
}

// Text returns the message body, falling back to attachment text when the
// body is empty.
func (m BotMessage) Text() string {
	if m.Content != "" {
		return m.Content
	}
	var parts []string
	for _, a := range m.Attachments {
		if a.Text != "" {
			parts = append(parts, a.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// OutboundMessage is a reply or announcement to post.
type OutboundMessage struct {
	Content string
	Channel string
	User    string
	Extra   map[string]string
}

// Target resolves where msg goes: channel, then user, then home.
func (m OutboundMessage) Target(home string) string {
	switch {
	case m.Channel != "":
		return m.Channel
	case m.User != "":
		return m.User
	default:
		return home
	}
}
