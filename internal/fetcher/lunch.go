package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/sirupsen/logrus"
)

// LunchUnavailable is the reply when the lunch server cannot be reached.
const LunchUnavailable = "점심 서버에서 데이터를 받을 수 없습니다."

// Lunch menu categories.
const (
	LunchToday    = "today"
	LunchTomorrow = "tomorrow"
)

// LunchMenu is the payload of GET /api/lunch/{category}.
type LunchMenu struct {
	Category string   `json:"category"`
	Foods    []string `json:"foods"`
}

// LunchClient fetches the cafeteria menu.
type LunchClient struct {
	client  *Client
	baseURL string
}

// NewLunchClient creates a LunchClient for the API rooted at baseURL.
func NewLunchClient(client *Client, baseURL string) *LunchClient {
	return &LunchClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch returns the formatted menu for category. It never fails.
func (l *LunchClient) Fetch(ctx context.Context, category string) string {
	if l.baseURL == "" {
		logger.Warn("lunch-api-not-configured")
		return LunchUnavailable
	}

	body, err := l.client.get(ctx, l.baseURL+"/api/lunch/"+url.PathEscape(category), nil)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"category": category,
			"error":    err,
		}).Warn("lunch-fetch-failed")
		return LunchUnavailable
	}

	menu, err := ParseLunchMenu(body)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"category": category,
			"error":    err,
		}).Warn("lunch-parse-failed")
		return LunchUnavailable
	}
	if menu.Category == "" {
		menu.Category = category
	}

	return FormatLunchMenu(menu)
}

// ParseLunchMenu decodes a lunch payload and rejects empty menus.
func ParseLunchMenu(body []byte) (LunchMenu, error) {
	var menu LunchMenu
	if err := json.Unmarshal(body, &menu); err != nil {
		return LunchMenu{}, fmt.Errorf("invalid lunch payload: %w", err)
	}

	foods := menu.Foods[:0]
	for _, f := range menu.Foods {
		if f = strings.TrimSpace(f); f != "" {
			foods = append(foods, f)
		}
	}
	menu.Foods = foods

	if len(menu.Foods) == 0 {
		return LunchMenu{}, fmt.Errorf("lunch menu for %q is empty", menu.Category)
	}
	return menu, nil
}

// FormatLunchMenu renders a header and one "- food" line per item.
func FormatLunchMenu(menu LunchMenu) string {
	var header string
	switch menu.Category {
	case LunchToday:
		header = "[오늘 점심]"
	case LunchTomorrow:
		header = "[내일 점심]"
	default:
		header = fmt.Sprintf("[%s 점심]", menu.Category)
	}

	lines := []string{header}
	for _, f := range menu.Foods {
		lines = append(lines, "- "+f)
	}
	return strings.Join(lines, "\n")
}
