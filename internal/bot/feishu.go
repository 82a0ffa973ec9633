package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/sirupsen/logrus"
)

// feishuCreateFunc posts one im/v1 message; swapped out in tests
type feishuCreateFunc func(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error)

// FeishuBot implements BotAdapter interface for Feishu (Lark) using WebSocket long connection
type FeishuBot struct {
	mu                sync.RWMutex
	appID             string
	appSecret         string
	homeChatID        string
	EncryptKey        string // Optional, for encrypted events
	VerificationToken string // Optional, for event verification
	wsClient          *ws.Client
	create            feishuCreateFunc
	messageHandler    func(BotMessage)
	ctx               context.Context
	cancel            context.CancelFunc
}

// NewFeishuBot creates a new Feishu bot instance
func NewFeishuBot(appID, appSecret, homeChatID string) *FeishuBot {
	larkClient := lark.NewClient(appID, appSecret)
	return &FeishuBot{
		appID:      appID,
		appSecret:  appSecret,
		homeChatID: homeChatID,
		create: func(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error) {
			req := larkim.NewCreateMessageReqBuilder().
				ReceiveIdType(receiveIDType).
				Body(body).
				Build()
			return larkClient.Im.Message.Create(ctx, req)
		},
		ctx: context.Background(),
	}
}

// Start establishes WebSocket long connection to Feishu and begins listening for messages
func (f *FeishuBot) Start(messageHandler func(BotMessage)) error {
	f.SetMessageHandler(messageHandler)

	logger.WithFields(logrus.Fields{
		"app_id": maskSecret(f.appID),
	}).Info("starting-feishu-bot-with-websocket-long-connection")

	eventDispatcher := dispatcher.NewEventDispatcher(f.VerificationToken, f.EncryptKey)
	eventDispatcher.OnP2MessageReceiveV1(f.handleMessageReceive)

	ctx, cancel := context.WithCancel(context.Background())
	wsClient := ws.NewClient(f.appID, f.appSecret,
		ws.WithEventHandler(eventDispatcher),
		ws.WithLogLevel(larkcore.LogLevelInfo),
		ws.WithAutoReconnect(true),
	)

	f.mu.Lock()
	f.ctx, f.cancel = ctx, cancel
	f.wsClient = wsClient
	f.mu.Unlock()

	// Start blocks for the lifetime of the connection
	go func() {
		if err := wsClient.Start(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"app_id": maskSecret(f.appID),
				"error":  err,
			}).Error("feishu-websocket-connection-failed")
		}
	}()

	time.Sleep(constants.StreamConnectDelay)

	logger.Info("feishu-websocket-long-connection-started")
	return nil
}

// handleMessageReceive handles incoming message events from Feishu
func (f *FeishuBot) handleMessageReceive(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
	if event == nil || event.Event == nil {
		return nil
	}
	ev := event.Event

	msg := BotMessage{
		Platform:  "feishu",
		Timestamp: time.Now(),
	}
	var messageType string
	if ev.Message != nil {
		msg.Channel = larkcore.StringValue(ev.Message.ChatId)
		messageType = larkcore.StringValue(ev.Message.MessageType)
		msg.Content = extractTextContent(larkcore.StringValue(ev.Message.Content))
	}
	if ev.Sender != nil {
		if ev.Sender.SenderId != nil {
			msg.UserID = larkcore.StringValue(ev.Sender.SenderId.OpenId)
		}
		if larkcore.StringValue(ev.Sender.SenderType) == "app" {
			msg.BotID = msg.UserID
		}
	}

	logger.WithFields(logrus.Fields{
		"platform":     "feishu",
		"user_id":      msg.UserID,
		"chat_id":      msg.Channel,
		"message_type": messageType,
		"bot_id":       msg.BotID,
	}).Debug("received-feishu-message")

	if msg.Content == "" {
		return nil
	}
	if handler := f.GetMessageHandler(); handler != nil {
		handler(msg)
	}
	return nil
}

// SendMessage sends a text message to a Feishu chat, or to a user by open id
func (f *FeishuBot) SendMessage(msg OutboundMessage) error {
	f.mu.RLock()
	create, ctx := f.create, f.ctx
	f.mu.RUnlock()

	if create == nil {
		return fmt.Errorf("feishu client not initialized")
	}
	if msg.Content == "" {
		return nil
	}

	receiveID, receiveIDType := feishuReceiver(msg, f.homeChatID)
	if receiveID == "" {
		return fmt.Errorf("chat ID is required for Feishu")
	}

	content, err := json.Marshal(map[string]string{
		"text": truncateMessage(msg.Content, constants.MaxFeishuMessageLength),
	})
	if err != nil {
		return fmt.Errorf("failed to encode feishu message: %w", err)
	}

	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(receiveID).
		MsgType(larkim.MsgTypeText).
		Content(string(content)).
		Build()

	resp, err := create(ctx, receiveIDType, body)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"receive_id": receiveID,
			"error":      err,
		}).Error("failed-to-send-message-to-feishu")
		return fmt.Errorf("failed to send message to %s: %w", receiveID, err)
	}
	if !resp.Success() {
		logger.WithFields(logrus.Fields{
			"receive_id": receiveID,
			"code":       resp.Code,
			"msg":        resp.Msg,
		}).Error("failed-to-send-message-to-feishu-api-error")
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	logger.WithField("receive_id", receiveID).Info("message-sent-to-feishu")
	return nil
}

// Stop closes the Feishu WebSocket connection and cleans up resources
func (f *FeishuBot) Stop() error {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.wsClient = nil
	f.mu.Unlock()

	// ws.Client has no Stop; the connection ends with its context
	if cancel != nil {
		cancel()
	}

	logger.Info("feishu-bot-stopped")
	return nil
}

// SetMessageHandler sets the message handler in a thread-safe manner
func (f *FeishuBot) SetMessageHandler(handler func(BotMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageHandler = handler
}

// GetMessageHandler gets the message handler in a thread-safe manner
func (f *FeishuBot) GetMessageHandler() func(BotMessage) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.messageHandler
}

// feishuReceiver resolves the receive id and its id type. Users are
// addressed by open id, everything else by chat id.
func feishuReceiver(msg OutboundMessage, home string) (string, string) {
	if msg.Channel == "" && msg.User != "" {
		return msg.User, larkim.ReceiveIdTypeOpenId
	}
	return msg.Target(home), larkim.ReceiveIdTypeChatId
}

// extractTextContent pulls the text out of a Feishu content payload,
// which looks like {"text":"actual message"}. Anything else is returned as is.
func extractTextContent(content string) string {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Text == "" {
		return content
	}
	return payload.Text
}
