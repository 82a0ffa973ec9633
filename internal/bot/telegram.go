package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// TelegramBot implements BotAdapter interface for Telegram using long polling
type TelegramBot struct {
	mu             sync.RWMutex
	token          string
	homeChatID     string
	bot            *tgbotapi.BotAPI
	messageHandler func(BotMessage)
	cancel         context.CancelFunc
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(token, homeChatID string) *TelegramBot {
	return &TelegramBot{
		token:      token,
		homeChatID: homeChatID,
	}
}

// Start establishes long polling connection to Telegram and begins listening for messages
func (t *TelegramBot) Start(messageHandler func(BotMessage)) error {
	t.SetMessageHandler(messageHandler)

	logger.WithFields(logrus.Fields{
		"token": maskSecret(t.token),
	}).Info("starting-telegram-bot-with-long-polling")

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.bot = bot
	t.cancel = cancel
	t.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"bot_username": bot.Self.UserName,
		"bot_id":       bot.Self.ID,
	}).Info("telegram-bot-initialized-successfully")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(constants.DefaultPollTimeout.Seconds())
	updates := bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("telegram-long-polling-stopped")
				return
			case update, ok := <-updates:
				if !ok {
					logger.Info("telegram-updates-channel-closed")
					return
				}
				if update.Message != nil {
					t.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

// handleMessage converts a Telegram message and hands it to the handler
func (t *TelegramBot) handleMessage(message *tgbotapi.Message) {
	if message == nil {
		return
	}

	msg := BotMessage{
		Platform:  "telegram",
		Content:   message.Text,
		Timestamp: time.Now(),
	}
	if message.Text == "" {
		msg.Content = message.Caption
	}
	if message.From != nil {
		msg.UserID = strconv.FormatInt(message.From.ID, 10)
		msg.UserName = message.From.UserName
		if message.From.IsBot {
			msg.BotID = msg.UserID
		}
	}
	if message.Chat != nil {
		msg.Channel = strconv.FormatInt(message.Chat.ID, 10)
		msg.ChannelName = message.Chat.Title
	}

	logger.WithFields(logrus.Fields{
		"platform":   "telegram",
		"user_id":    msg.UserID,
		"username":   msg.UserName,
		"chat_id":    msg.Channel,
		"message_id": message.MessageID,
	}).Debug("received-telegram-message")

	if msg.Content == "" {
		return
	}
	if handler := t.GetMessageHandler(); handler != nil {
		handler(msg)
	}
}

// SendMessage sends a message to a Telegram chat. A user target is sent to
// the user's private chat, whose id equals the user id.
func (t *TelegramBot) SendMessage(msg OutboundMessage) error {
	t.mu.RLock()
	bot := t.bot
	t.mu.RUnlock()

	if bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}
	if msg.Content == "" {
		return nil
	}

	chatID := msg.Target(t.homeChatID)
	if chatID == "" {
		return fmt.Errorf("chat ID is required for Telegram")
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID format: %w", err)
	}

	out := tgbotapi.NewMessage(id, truncateMessage(msg.Content, constants.MaxTelegramMessageLength))
	if _, err := bot.Send(out); err != nil {
		logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"error":   err,
		}).Error("failed-to-send-message-to-telegram")
		return fmt.Errorf("failed to send message to chat %s: %w", chatID, err)
	}

	logger.WithField("chat_id", chatID).Info("message-sent-to-telegram")
	return nil
}

// Stop closes the Telegram long polling connection and cleans up resources
func (t *TelegramBot) Stop() error {
	t.mu.Lock()
	bot, cancel := t.bot, t.cancel
	t.bot, t.cancel = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if bot != nil {
		bot.StopReceivingUpdates()
	}

	logger.Info("telegram-bot-stopped")
	return nil
}

// SetMessageHandler sets the message handler in a thread-safe manner
func (t *TelegramBot) SetMessageHandler(handler func(BotMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// GetMessageHandler gets the message handler in a thread-safe manner
func (t *TelegramBot) GetMessageHandler() func(BotMessage) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messageHandler
}
