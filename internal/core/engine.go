package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/keepmind9/tubebot/internal/bot"
	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/internal/router"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Engine receives messages from every bot, routes them and posts the replies
type Engine struct {
	config         *Config
	router         *router.Router
	activeBots     map[string]bot.BotAdapter // Bot type -> adapter
	botsMu         sync.RWMutex
	messageChan    chan bot.BotMessage // Bot message channel
	scheduler      *Scheduler
	announceServer *http.Server
	inflight       sync.WaitGroup // Dispatches still fetching
	dispatchMu     sync.Mutex     // Orders inflight.Add against Stop
	closing        bool
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewEngine creates a new Engine instance
func NewEngine(config *Config, rt *router.Router) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		config:      config,
		router:      rt,
		activeBots:  make(map[string]bot.BotAdapter),
		messageChan: make(chan bot.BotMessage, constants.MessageChannelBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterBotAdapter registers a bot adapter
func (e *Engine) RegisterBotAdapter(botType string, adapter bot.BotAdapter) {
	e.botsMu.Lock()
	defer e.botsMu.Unlock()
	e.activeBots[botType] = adapter
}

// Run starts the bots, scheduler and announce server, then processes
// messages until ctx is done or Stop is called
func (e *Engine) Run(ctx context.Context) error {
	logger.WithFields(logrus.Fields{
		"bot_name": e.config.BotName,
		"rules":    strings.Join(e.router.Rules(), ","),
	}).Info("starting-tubebot-engine")

	if e.config.Scheduler.Enabled {
		scheduler, err := NewScheduler(e.config.Location(), e.config.Scheduler.Jobs, e.SendToAllBots)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		e.scheduler = scheduler
		scheduler.Start()
	}

	if e.config.AnnounceServer.Enabled {
		e.announceServer = e.newAnnounceServer()
		go e.serveAnnounce(e.announceServer)
	}

	e.botsMu.RLock()
	for botType, botAdapter := range e.activeBots {
		logger.WithField("bot_type", botType).Info("starting-bot")
		go func(bt string, ba bot.BotAdapter) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"bot_type": bt,
						"panic":    r,
					}).Error("bot-start-panic-recovered")
				}
			}()
			if err := ba.Start(e.HandleBotMessage); err != nil {
				logger.WithFields(logrus.Fields{
					"bot_type": bt,
					"error":    err,
				}).Error("failed-to-start-bot")
			}
		}(botType, botAdapter)
	}
	e.botsMu.RUnlock()

	e.runEventLoop(ctx)

	return nil
}

// runEventLoop runs the main event loop for processing messages
func (e *Engine) runEventLoop(ctx context.Context) {
	logger.Info("engine-event-loop-started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("event-loop-shutting-down")
			return
		case <-e.ctx.Done():
			logger.Info("event-loop-shutting-down")
			return
		case msg := <-e.messageChan:
			e.HandleUserMessage(msg)
		}
	}
}

// HandleBotMessage is the callback function for bots to deliver messages
func (e *Engine) HandleBotMessage(msg bot.BotMessage) {
	select {
	case e.messageChan <- msg:
	case <-e.ctx.Done():
	}
}

// HandleUserMessage filters msg, routes its text and sends the reply in the
// background. At most one reply is sent per message.
func (e *Engine) HandleUserMessage(msg bot.BotMessage) {
	fields := logrus.Fields{
		"platform": msg.Platform,
		"user":     msg.UserName,
		"channel":  msg.ChannelName,
	}

	out := bot.OutboundMessage{
		Channel: msg.Channel,
		User:    msg.UserID,
	}

	if msg.BotID != "" {
		if !e.config.IsBotAllowed(msg.BotID) {
			logger.WithField("bot_id", msg.BotID).Debug("ignoring-bot-message")
			return
		}
		if e.config.RerouteBotMessages() {
			out.Channel = e.config.HomeChannelFor(msg.Platform)
			out.User = ""
		}
		fields["bot_id"] = msg.BotID
	}

	text := strings.TrimSpace(msg.Text())
	rule, ok := e.router.Match(text)
	if !ok {
		return
	}
	fields["rule"] = rule.Name
	logger.WithFields(fields).Info("message-matched-rule")

	e.dispatchMu.Lock()
	if e.closing {
		e.dispatchMu.Unlock()
		logger.WithField("rule", rule.Name).Debug("engine-stopping-message-dropped")
		return
	}
	e.inflight.Add(1)
	e.dispatchMu.Unlock()

	go func() {
		defer e.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"rule":  rule.Name,
					"panic": r,
				}).Error("dispatch-panic-recovered")
			}
		}()

		reply, ok := e.router.Dispatch(e.ctx, text)
		if !ok {
			logger.WithField("rule", rule.Name).Debug("rule-produced-no-reply")
			return
		}
		out.Content = reply.Content
		e.SendToBot(msg.Platform, out)
	}()
}

// SendToBot sends a message through a specific bot. The configured payload
// is attached unless msg carries its own extras.
func (e *Engine) SendToBot(platform string, msg bot.OutboundMessage) {
	if msg.Content == "" {
		return
	}

	e.botsMu.RLock()
	botAdapter, exists := e.activeBots[platform]
	e.botsMu.RUnlock()
	if !exists {
		logger.WithField("platform", platform).Warn("no-bot-registered-for-platform")
		return
	}

	if msg.Extra == nil {
		msg.Extra = e.config.PayloadExtras()
	}

	target := msg.Target(e.config.HomeChannelFor(platform))
	if msg.Channel == "" && msg.User == "" {
		msg.Channel = target
	}

	if err := botAdapter.SendMessage(msg); err != nil {
		logger.WithFields(logrus.Fields{
			"platform": platform,
			"target":   target,
			"error":    err,
		}).Error("failed-to-send-message-to-bot")
		return
	}

	logger.WithFields(logrus.Fields{
		"platform": platform,
		"target":   target,
		"length":   len(msg.Content),
	}).Info("message-sent-to-bot")
}

// SendToAllBots sends content to the home channel of every active bot
func (e *Engine) SendToAllBots(content string) {
	e.Announce(content, "")
}

// Announce sends content to channel on every active bot, or to each bot's
// home channel when channel is empty
func (e *Engine) Announce(content, channel string) {
	e.botsMu.RLock()
	platforms := make([]string, 0, len(e.activeBots))
	for platform := range e.activeBots {
		platforms = append(platforms, platform)
	}
	e.botsMu.RUnlock()

	for _, platform := range platforms {
		e.SendToBot(platform, bot.OutboundMessage{Content: content, Channel: channel})
	}
}

// Stop gracefully stops the engine
func (e *Engine) Stop() error {
	logger.Info("stopping-tubebot-engine")

	e.dispatchMu.Lock()
	e.closing = true
	e.dispatchMu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}

	if e.scheduler != nil {
		e.scheduler.Stop()
	}

	if e.announceServer != nil {
		e.shutdownAnnounce(e.announceServer)
	}

	e.inflight.Wait()

	e.botsMu.RLock()
	defer e.botsMu.RUnlock()
	for botType, botAdapter := range e.activeBots {
		logger.WithField("bot_type", botType).Info("stopping-bot")
		if err := botAdapter.Stop(); err != nil {
			logger.WithFields(logrus.Fields{
				"bot_type": botType,
				"error":    err,
			}).Error("failed-to-stop-bot")
		}
	}

	logger.Info("engine-stopped")
	return nil
}
