package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keepmind9/tubebot/internal/bot"
	"github.com/keepmind9/tubebot/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BotName:     "tube-bot",
		HomeChannel: "general",
		Timezone:    "UTC",
		Bots: map[string]BotConfig{
			"slack": {Enabled: true, Token: "xoxb-test", AppToken: "xapp-test"},
		},
		Security: SecurityConfig{AllowedBotIDs: []string{"B-allowed"}},
		Payload:  PayloadConfig{IconURL: "https://example.com/icon.png"},
	}
}

// echoRouter replies "echo: <text>" to anything containing "echo"
func echoRouter() *router.Router {
	return router.New("",
		router.Rule{
			Name:  "echo",
			Match: func(text string) bool { return strings.Contains(text, "echo") },
			Handle: func(_ context.Context, text string) (string, error) {
				return "echo: " + text, nil
			},
		},
		router.Rule{
			Name:  "broken",
			Match: func(text string) bool { return strings.Contains(text, "broken") },
			Handle: func(context.Context, string) (string, error) {
				return "", errors.New("upstream down")
			},
		},
		router.Rule{
			Name:  "silent",
			Match: func(text string) bool { return strings.Contains(text, "silent") },
			Handle: func(context.Context, string) (string, error) {
				return "", nil
			},
		},
	)
}

func newTestEngine(t *testing.T, config *Config) (*Engine, *mockBotAdapter) {
	t.Helper()
	e := NewEngine(config, echoRouter())
	mock := newMockBotAdapter()
	e.RegisterBotAdapter("slack", mock)
	return e, mock
}

func TestEngine_HandleUserMessage_RepliesToChannel(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())

	e.HandleUserMessage(bot.BotMessage{Platform: "slack", UserID: "U1", Channel: "C1", Content: "echo hi"})
	e.inflight.Wait()

	sent := mock.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "echo: echo hi", sent[0].Content)
	assert.Equal(t, "C1", sent[0].Channel)
	assert.Equal(t, "U1", sent[0].User)
	assert.Equal(t, "https://example.com/icon.png", sent[0].Extra[bot.ExtraIconURL])
}

func TestEngine_HandleUserMessage_NoMatchNoReply(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())

	e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "안녕하세요"})
	e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "   "})
	e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "silent please"})
	e.inflight.Wait()

	assert.Empty(t, mock.messages())
}

func TestEngine_HandleUserMessage_HandlerErrorSendsFallback(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())

	e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "broken"})
	e.inflight.Wait()

	sent := mock.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, router.DefaultFallback, sent[0].Content)
}

func TestEngine_HandleUserMessage_BotMessages(t *testing.T) {
	t.Run("unknown bot is ignored", func(t *testing.T) {
		e, mock := newTestEngine(t, testConfig())

		e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", BotID: "B-other", Content: "echo"})
		e.inflight.Wait()

		assert.Empty(t, mock.messages())
	})

	t.Run("allowed bot is rerouted home with attachment text", func(t *testing.T) {
		e, mock := newTestEngine(t, testConfig())

		e.HandleUserMessage(bot.BotMessage{
			Platform:    "slack",
			Channel:     "C1",
			UserID:      "U-bot",
			BotID:       "B-allowed",
			Attachments: []bot.Attachment{{Text: "echo from attachment"}},
		})
		e.inflight.Wait()

		sent := mock.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "echo: echo from attachment", sent[0].Content)
		assert.Equal(t, "general", sent[0].Channel)
		assert.Empty(t, sent[0].User)
	})

	t.Run("allowed bot without reroute replies in place", func(t *testing.T) {
		config := testConfig()
		reroute := false
		config.Security.RerouteBotMessages = &reroute
		e, mock := newTestEngine(t, config)

		e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", BotID: "B-allowed", Content: "echo"})
		e.inflight.Wait()

		sent := mock.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "C1", sent[0].Channel)
	})
}

func TestEngine_SendToBot(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())

	e.SendToBot("slack", bot.OutboundMessage{})
	e.SendToBot("discord", bot.OutboundMessage{Content: "nobody listens"})
	e.SendToBot("slack", bot.OutboundMessage{Content: "custom", Extra: map[string]string{bot.ExtraUsername: "other"}})

	sent := mock.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "general", sent[0].Channel)
	assert.Equal(t, map[string]string{bot.ExtraUsername: "other"}, sent[0].Extra)
}

func TestEngine_SendToBot_ErrorIsLogged(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())
	mock.sendErr = errSendFailed

	assert.NotPanics(t, func() {
		e.SendToBot("slack", bot.OutboundMessage{Content: "hi"})
	})
	assert.Empty(t, mock.messages())
}

func TestEngine_Announce(t *testing.T) {
	config := testConfig()
	config.Bots["telegram"] = BotConfig{Enabled: true, Token: "t", ChannelID: "-100"}
	e, slackMock := newTestEngine(t, config)
	telegramMock := newMockBotAdapter()
	e.RegisterBotAdapter("telegram", telegramMock)

	e.SendToAllBots("퇴근 10분 전")
	e.Announce("공지", "C-news")

	slackSent := slackMock.messages()
	require.Len(t, slackSent, 2)
	assert.Equal(t, "general", slackSent[0].Channel)
	assert.Equal(t, "C-news", slackSent[1].Channel)

	telegramSent := telegramMock.messages()
	require.Len(t, telegramSent, 2)
	assert.Equal(t, "-100", telegramSent[0].Channel)
	assert.Equal(t, "퇴근 10분 전", telegramSent[0].Content)
}

func TestEngine_Run_DeliversThroughEventLoop(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, e.Run(ctx))
	}()

	select {
	case <-mock.started:
	case <-time.After(2 * time.Second):
		t.Fatal("bot was not started")
	}

	mock.deliver(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "echo loop"})

	assert.Eventually(t, func() bool {
		return len(mock.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	require.NoError(t, e.Stop())
	assert.True(t, mock.stopped)
}

func TestEngine_Stop_WaitsForInflightDispatch(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	rt := router.New("", router.Rule{
		Name:  "slow",
		Match: func(string) bool { return true },
		Handle: func(context.Context, string) (string, error) {
			<-release
			finished.Store(true)
			return "done", nil
		},
	})

	e := NewEngine(testConfig(), rt)
	mock := newMockBotAdapter()
	e.RegisterBotAdapter("slack", mock)

	e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "anything"})

	stopped := make(chan struct{})
	go func() {
		_ = e.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the dispatch finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped
	assert.True(t, finished.Load())
	assert.Len(t, mock.messages(), 1)
}

func TestEngine_HandleBotMessage_AfterStopDoesNotBlock(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	require.NoError(t, e.Stop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			e.HandleBotMessage(bot.BotMessage{Content: "echo"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleBotMessage blocked after Stop")
	}
}

func TestEngine_HandleUserMessage_AfterStopIsDropped(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())
	require.NoError(t, e.Stop())

	e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "echo late"})
	e.inflight.Wait()

	assert.Empty(t, mock.messages())
	assert.Zero(t, mock.lateSends())
}

func TestEngine_Stop_RacingMessagesNeverReachStoppedBot(t *testing.T) {
	e, mock := newTestEngine(t, testConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			e.HandleUserMessage(bot.BotMessage{Platform: "slack", Channel: "C1", Content: "echo"})
		}
	}()

	time.Sleep(time.Millisecond)
	require.NoError(t, e.Stop())
	<-done
	e.inflight.Wait()

	assert.Zero(t, mock.lateSends())
}
