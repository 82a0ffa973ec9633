package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/client"
	"github.com/sirupsen/logrus"
)

// DingTalkReplier posts text through a conversation's session webhook.
// Satisfied by *chatbot.ChatbotReplier.
type DingTalkReplier interface {
	SimpleReplyText(ctx context.Context, sessionWebhook string, content []byte) error
}

// DingTalkBot implements BotAdapter interface for DingTalk using WebSocket long connection.
// DingTalk only allows replies through the session webhook of a received
// message, so webhooks are remembered per conversation.
type DingTalkBot struct {
	mu             sync.RWMutex
	clientID       string
	clientSecret   string
	homeConvID     string
	streamClient   *client.StreamClient
	replier        DingTalkReplier
	webhooks       map[string]string // conversation id -> session webhook
	messageHandler func(BotMessage)
	cancel         context.CancelFunc
}

// NewDingTalkBot creates a new DingTalk bot instance
func NewDingTalkBot(clientID, clientSecret, homeConvID string) *DingTalkBot {
	return &DingTalkBot{
		clientID:     clientID,
		clientSecret: clientSecret,
		homeConvID:   homeConvID,
		replier:      chatbot.NewChatbotReplier(),
		webhooks:     make(map[string]string),
	}
}

// Start establishes WebSocket long connection to DingTalk and begins listening for messages
func (d *DingTalkBot) Start(messageHandler func(BotMessage)) error {
	d.SetMessageHandler(messageHandler)

	logger.WithFields(logrus.Fields{
		"client_id": maskSecret(d.clientID),
	}).Info("starting-dingtalk-bot-with-websocket-long-connection")

	credential := client.NewAppCredentialConfig(d.clientID, d.clientSecret)
	streamClient := client.NewStreamClient(client.WithAppCredential(credential))
	streamClient.RegisterChatBotCallbackRouter(d.handleMessageReceive)

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.streamClient = streamClient
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		if err := streamClient.Start(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"client_id": maskSecret(d.clientID),
				"error":     err,
			}).Error("dingtalk-websocket-connection-failed")
		}
	}()

	time.Sleep(constants.StreamConnectDelay)

	logger.Info("dingtalk-websocket-long-connection-started")
	return nil
}

// handleMessageReceive handles incoming message events from DingTalk
func (d *DingTalkBot) handleMessageReceive(ctx context.Context, data *chatbot.BotCallbackDataModel) ([]byte, error) {
	if data == nil {
		return []byte(""), nil
	}

	if data.SessionWebhook != "" {
		d.mu.Lock()
		d.webhooks[data.ConversationId] = data.SessionWebhook
		d.mu.Unlock()
	}

	logger.WithFields(logrus.Fields{
		"platform":          "dingtalk",
		"conversation_id":   data.ConversationId,
		"conversation_type": data.ConversationType,
		"sender_staff_id":   data.SenderStaffId,
		"msg_type":          data.Msgtype,
	}).Debug("received-dingtalk-message")

	if data.Msgtype != "text" {
		return []byte(""), nil
	}

	if handler := d.GetMessageHandler(); handler != nil {
		handler(BotMessage{
			Platform:    "dingtalk",
			UserID:      data.SenderStaffId,
			UserName:    data.SenderNick,
			Channel:     data.ConversationId,
			ChannelName: data.ConversationTitle,
			Content:     strings.TrimSpace(data.Text.Content),
			Timestamp:   time.Now(),
		})
	}

	return []byte(""), nil
}

// SendMessage replies to a DingTalk conversation through its last known session webhook
func (d *DingTalkBot) SendMessage(msg OutboundMessage) error {
	if msg.Content == "" {
		return nil
	}

	conversationID := msg.Target(d.homeConvID)
	if conversationID == "" {
		return fmt.Errorf("conversation ID is required for DingTalk")
	}

	d.mu.RLock()
	webhook := d.webhooks[conversationID]
	replier := d.replier
	d.mu.RUnlock()

	if webhook == "" {
		return fmt.Errorf("no session webhook known for conversation %s", conversationID)
	}

	content := truncateMessage(msg.Content, constants.MaxDingTalkMessageLength)
	if err := replier.SimpleReplyText(context.Background(), webhook, []byte(content)); err != nil {
		logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err,
		}).Error("failed-to-send-message-to-dingtalk")
		return fmt.Errorf("failed to send message to conversation %s: %w", conversationID, err)
	}

	logger.WithField("conversation_id", conversationID).Info("message-sent-to-dingtalk")
	return nil
}

// Stop closes the DingTalk WebSocket connection and cleans up resources
func (d *DingTalkBot) Stop() error {
	d.mu.Lock()
	cancel := d.cancel
	streamClient := d.streamClient
	d.cancel = nil
	d.streamClient = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if streamClient != nil {
		streamClient.Close()
	}

	logger.Info("dingtalk-bot-stopped")
	return nil
}

// SetMessageHandler sets the message handler in a thread-safe manner
func (d *DingTalkBot) SetMessageHandler(handler func(BotMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messageHandler = handler
}

// GetMessageHandler gets the message handler in a thread-safe manner
func (d *DingTalkBot) GetMessageHandler() func(BotMessage) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.messageHandler
}
