package main

import (
	"fmt"

	"github.com/keepmind9/tubebot/internal/bot"
	"github.com/keepmind9/tubebot/internal/core"
	"github.com/keepmind9/tubebot/internal/fetcher"
	"github.com/keepmind9/tubebot/internal/router"
)

// buildRouter wires the fetchers configured in config into the default rule table
func buildRouter(config *core.Config) *router.Router {
	opts := []fetcher.Option{fetcher.WithTimeout(config.FetchTimeout())}
	if config.Fetchers.RequestsPerSecond > 0 {
		opts = append(opts, fetcher.WithRateLimit(config.Fetchers.RequestsPerSecond, config.Fetchers.RequestBurst))
	}
	client := fetcher.NewClient(opts...)

	handlers := router.Handlers{
		Fortune: fetcher.NewFortuneClient(client, config.Fetchers.FortuneURL),
		Restaurant: fetcher.NewRestaurantClient(client, fetcher.RestaurantConfig{
			Endpoint: config.Fetchers.RestaurantURL,
			Selector: config.Fetchers.RestaurantSelector,
			Pages:    config.Fetchers.RestaurantPages,
		}),
		Gate:              router.NewTimeGate(config.Replies.QuietHour, config.Location()),
		RestaurantKeyword: config.Fetchers.RestaurantKeyword,
		HospitalReply:     config.Replies.Hospital,
	}
	if config.Fetchers.LunchURL != "" {
		handlers.Lunch = fetcher.NewLunchClient(client, config.Fetchers.LunchURL)
	}

	return router.New(config.Replies.Fallback, router.DefaultRules(handlers)...)
}

// newBotAdapter creates the adapter for an enabled bot
func newBotAdapter(botType string, botConfig core.BotConfig, home string) (bot.BotAdapter, error) {
	switch botType {
	case "slack":
		return bot.NewSlackBot(botConfig.Token, botConfig.AppToken, home), nil
	case "discord":
		return bot.NewDiscordBot(botConfig.Token, home), nil
	case "telegram":
		return bot.NewTelegramBot(botConfig.Token, home), nil
	case "feishu":
		feishuBot := bot.NewFeishuBot(botConfig.AppID, botConfig.AppSecret, home)
		feishuBot.EncryptKey = botConfig.EncryptKey
		feishuBot.VerificationToken = botConfig.VerificationToken
		return feishuBot, nil
	case "dingtalk":
		return bot.NewDingTalkBot(botConfig.AppID, botConfig.AppSecret, home), nil
	default:
		return nil, fmt.Errorf("unsupported bot type: %s", botType)
	}
}

// buildEngine creates the engine and registers every enabled bot
func buildEngine(config *core.Config) (*core.Engine, []string, error) {
	engine := core.NewEngine(config, buildRouter(config))

	var registered []string
	for botType, botConfig := range config.Bots {
		if !botConfig.Enabled {
			continue
		}
		adapter, err := newBotAdapter(botType, botConfig, config.HomeChannelFor(botType))
		if err != nil {
			return nil, nil, err
		}
		engine.RegisterBotAdapter(botType, adapter)
		registered = append(registered, botType)
	}

	if len(registered) == 0 {
		return nil, nil, fmt.Errorf("no bots are enabled")
	}

	return engine, registered, nil
}
