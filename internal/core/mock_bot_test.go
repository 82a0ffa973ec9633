package core

import (
	"errors"
	"sync"

	"github.com/keepmind9/tubebot/internal/bot"
)

// mockBotAdapter records outbound messages
type mockBotAdapter struct {
	mu            sync.Mutex
	handler       func(bot.BotMessage)
	sent          []bot.OutboundMessage
	sendErr       error
	started       chan struct{}
	stopped       bool
	sentAfterStop int
}

func newMockBotAdapter() *mockBotAdapter {
	return &mockBotAdapter{started: make(chan struct{})}
}

func (m *mockBotAdapter) Start(handler func(bot.BotMessage)) error {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
	close(m.started)
	return nil
}

func (m *mockBotAdapter) SendMessage(msg bot.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		m.sentAfterStop++
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockBotAdapter) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockBotAdapter) deliver(msg bot.BotMessage) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	handler(msg)
}

func (m *mockBotAdapter) lateSends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sentAfterStop
}

func (m *mockBotAdapter) messages() []bot.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bot.OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

var errSendFailed = errors.New("send failed")
