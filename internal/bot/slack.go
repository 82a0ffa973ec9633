package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SlackAPI is the subset of *slack.Client the adapter uses.
type SlackAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	GetConversationInfo(input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetUserInfo(user string) (*slack.User, error)
}

// SlackBot implements BotAdapter for Slack using socket mode
type SlackBot struct {
	mu             sync.RWMutex
	botToken       string
	appToken       string
	homeChannel    string
	api            SlackAPI
	socket         *socketmode.Client
	selfBotID      string
	messageHandler func(BotMessage)
	cancel         context.CancelFunc
}

// NewSlackBot creates a new Slack bot instance
func NewSlackBot(botToken, appToken, homeChannel string) *SlackBot {
	return &SlackBot{
		botToken:    botToken,
		appToken:    appToken,
		homeChannel: homeChannel,
	}
}

// Start opens the socket mode connection and begins listening for messages
func (s *SlackBot) Start(messageHandler func(BotMessage)) error {
	s.SetMessageHandler(messageHandler)

	logger.WithFields(logrus.Fields{
		"token":        maskSecret(s.botToken),
		"home_channel": s.homeChannel,
	}).Info("starting-slack-bot-with-socket-mode")

	client := slack.New(s.botToken, slack.OptionAppLevelToken(s.appToken))

	auth, err := client.AuthTest()
	if err != nil {
		return fmt.Errorf("failed to authenticate slack bot: %w", err)
	}

	socket := socketmode.New(client, socketmode.OptionDebug(false))
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.api = client
	s.socket = socket
	s.selfBotID = auth.BotID
	s.cancel = cancel
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"bot_id":  auth.BotID,
		"user_id": auth.UserID,
		"team":    auth.Team,
	}).Info("slack-bot-authenticated")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-socket.Events:
				if !ok {
					return
				}
				s.handleSocketEvent(socket, evt)
			}
		}
	}()

	go func() {
		if err := socket.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithField("error", err).Error("slack-socket-mode-stopped")
		}
	}()

	return nil
}

func (s *SlackBot) handleSocketEvent(socket *socketmode.Client, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		logger.Info("slack-socket-connected")
	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			socket.Ack(*evt.Request)
		}
		s.handleEventsAPI(event)
	}
}

func (s *SlackBot) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	s.handleMessageEvent(ev)
}

// handleMessageEvent converts a Slack message event and hands it to the handler
func (s *SlackBot) handleMessageEvent(ev *slackevents.MessageEvent) {
	if ev == nil {
		return
	}
	switch ev.SubType {
	case "message_changed", "message_deleted", "channel_join", "channel_leave":
		return
	}

	msg := BotMessage{
		Platform:  "slack",
		UserID:    ev.User,
		Channel:   ev.Channel,
		BotID:     ev.BotID,
		Content:   ev.Text,
		Timestamp: time.Now(),
	}
	for _, a := range ev.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{Text: a.Text, ImageURL: a.ImageURL})
	}
	msg.ChannelName = s.channelName(ev.Channel)
	msg.UserName = s.userName(ev.User)

	logger.WithFields(logrus.Fields{
		"platform": "slack",
		"user":     msg.UserName,
		"channel":  msg.ChannelName,
		"bot_id":   msg.BotID,
		"self":     msg.BotID != "" && msg.BotID == s.selfID(),
		"content":  msg.Content,
	}).Debug("received-slack-message")

	if handler := s.GetMessageHandler(); handler != nil {
		handler(msg)
	}
}

// channelName resolves a channel id, returning "" when the lookup fails
func (s *SlackBot) channelName(id string) string {
	api := s.getAPI()
	if api == nil || id == "" {
		return ""
	}
	ch, err := api.GetConversationInfo(&slack.GetConversationInfoInput{ChannelID: id})
	if err != nil || ch == nil {
		return ""
	}
	return ch.Name
}

// userName resolves a user id, returning "" when the lookup fails
func (s *SlackBot) userName(id string) string {
	api := s.getAPI()
	if api == nil || id == "" {
		return ""
	}
	u, err := api.GetUserInfo(id)
	if err != nil || u == nil {
		return ""
	}
	return u.Name
}

// SendMessage posts a message to a Slack channel or user
func (s *SlackBot) SendMessage(msg OutboundMessage) error {
	api := s.getAPI()
	if api == nil {
		return fmt.Errorf("slack client not initialized")
	}
	if msg.Content == "" {
		return nil
	}

	target := msg.Target(s.homeChannel)
	if target == "" {
		return fmt.Errorf("no target channel or user for slack message")
	}

	content := truncateMessage(msg.Content, constants.MaxSlackMessageLength)
	opts := []slack.MsgOption{slack.MsgOptionText(content, false)}
	if v := msg.Extra[ExtraIconURL]; v != "" {
		opts = append(opts, slack.MsgOptionIconURL(v))
	}
	if v := msg.Extra[ExtraIconEmoji]; v != "" {
		opts = append(opts, slack.MsgOptionIconEmoji(v))
	}
	if v := msg.Extra[ExtraUsername]; v != "" {
		opts = append(opts, slack.MsgOptionUsername(v))
	}

	if _, _, err := api.PostMessage(target, opts...); err != nil {
		logger.WithFields(logrus.Fields{
			"target": target,
			"error":  err,
		}).Error("failed-to-send-message-to-slack")
		return fmt.Errorf("failed to send message to %s: %w", target, err)
	}

	logger.WithField("target", target).Info("message-sent-to-slack")
	return nil
}

// Stop closes the socket mode connection
func (s *SlackBot) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.api = nil
	s.socket = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	logger.Info("slack-bot-stopped")
	return nil
}

// SetMessageHandler sets the message handler in a thread-safe manner
func (s *SlackBot) SetMessageHandler(handler func(BotMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageHandler = handler
}

// GetMessageHandler gets the message handler in a thread-safe manner
func (s *SlackBot) GetMessageHandler() func(BotMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageHandler
}

func (s *SlackBot) getAPI() SlackAPI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

func (s *SlackBot) selfID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfBotID
}
