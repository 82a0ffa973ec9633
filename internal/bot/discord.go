package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// DiscordSessionInterface defines the interface we need from discordgo.Session
// This allows us to mock it in tests without depending on concrete types
type DiscordSessionInterface interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// DiscordBot implements BotAdapter interface for Discord
type DiscordBot struct {
	mu             sync.RWMutex
	token          string
	channelID      string
	session        DiscordSessionInterface
	messageHandler func(BotMessage)
}

// NewDiscordBot creates a new Discord bot instance
func NewDiscordBot(token, channelID string) *DiscordBot {
	return &DiscordBot{
		token:     token,
		channelID: channelID,
	}
}

// Start establishes connection to Discord and begins listening for messages
func (d *DiscordBot) Start(messageHandler func(BotMessage)) error {
	d.SetMessageHandler(messageHandler)

	logger.WithFields(logrus.Fields{
		"token":   maskSecret(d.token),
		"channel": d.channelID,
	}).Info("starting-discord-bot")

	d.mu.Lock()
	if d.session == nil {
		session, err := discordgo.New("Bot " + d.token)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("failed to create discord session: %w", err)
		}
		d.session = session
	}
	session := d.session
	d.mu.Unlock()

	session.AddHandler(d.handleMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}

	return nil
}

// handleMessageCreate converts a Discord message and hands it to the handler
func (d *DiscordBot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}

	msg := BotMessage{
		Platform:  "discord",
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Channel:   m.ChannelID,
		Content:   m.Content,
		Timestamp: time.Now(),
	}
	if m.Author.Bot {
		msg.BotID = m.Author.ID
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		a := Attachment{Text: e.Description}
		if e.Image != nil {
			a.ImageURL = e.Image.URL
		}
		msg.Attachments = append(msg.Attachments, a)
	}
	if s != nil && s.State != nil {
		if ch, err := s.State.Channel(m.ChannelID); err == nil {
			msg.ChannelName = ch.Name
		}
	}

	logger.WithFields(logrus.Fields{
		"platform": "discord",
		"user_id":  msg.UserID,
		"username": msg.UserName,
		"channel":  msg.Channel,
		"bot_id":   msg.BotID,
	}).Debug("received-discord-message")

	if handler := d.GetMessageHandler(); handler != nil {
		handler(msg)
	}
}

// SendMessage sends a message to a Discord channel, or as a DM to a user
func (d *DiscordBot) SendMessage(msg OutboundMessage) error {
	d.mu.RLock()
	session := d.session
	channelID := d.channelID
	d.mu.RUnlock()

	if session == nil {
		return fmt.Errorf("discord session not initialized")
	}
	if msg.Content == "" {
		return nil
	}

	target := msg.Target(channelID)
	if msg.Channel == "" && msg.User != "" {
		dm, err := session.UserChannelCreate(msg.User)
		if err != nil {
			return fmt.Errorf("failed to open DM with user %s: %w", msg.User, err)
		}
		target = dm.ID
	}
	if target == "" {
		return fmt.Errorf("no target channel for discord message")
	}

	content := truncateMessage(msg.Content, constants.MaxDiscordMessageLength)
	if _, err := session.ChannelMessageSend(target, content); err != nil {
		logger.WithFields(logrus.Fields{
			"channel": target,
			"error":   err,
		}).Error("failed-to-send-message-to-discord")
		return fmt.Errorf("failed to send message to channel %s: %w", target, err)
	}

	logger.WithField("channel", target).Info("message-sent-to-discord")
	return nil
}

// Stop closes the Discord connection and cleans up resources
func (d *DiscordBot) Stop() error {
	d.mu.Lock()
	session := d.session
	d.session = nil
	d.mu.Unlock()

	if session == nil {
		return nil
	}

	if err := session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}

	return nil
}

// SetMessageHandler sets the message handler in a thread-safe manner
func (d *DiscordBot) SetMessageHandler(handler func(BotMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messageHandler = handler
}

// GetMessageHandler gets the message handler in a thread-safe manner
func (d *DiscordBot) GetMessageHandler() func(BotMessage) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.messageHandler
}
