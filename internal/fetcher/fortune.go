package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultFortuneURL is the fortune content endpoint.
const DefaultFortuneURL = "https://m.search.naver.com/p/csearch/content/apirender.nhn"

// ErrEmptyFortune is returned by ParseFortune when the payload has no reading.
var ErrEmptyFortune = errors.New("fortune payload has no content")

// FortuneQuery selects a reading: a category such as "흑염소 띠" and the
// provider scheme it belongs to.
type FortuneQuery struct {
	Category string
	SystemID int
}

// YearFortune is the reading for one birth year.
type YearFortune struct {
	Year string
	Desc string
}

// FortuneReading is the parsed fortune payload.
type FortuneReading struct {
	Summary string
	Years   []YearFortune
}

// FortuneClient fetches daily fortune readings.
type FortuneClient struct {
	client   *Client
	endpoint string
}

// NewFortuneClient creates a FortuneClient. An empty endpoint uses DefaultFortuneURL.
func NewFortuneClient(client *Client, endpoint string) *FortuneClient {
	if endpoint == "" {
		endpoint = DefaultFortuneURL
	}
	return &FortuneClient{client: client, endpoint: endpoint}
}

// Fetch returns the formatted reading for q. It never fails: network and
// parse errors become user-facing fallback messages.
func (f *FortuneClient) Fetch(ctx context.Context, q FortuneQuery) string {
	params := url.Values{
		"where": {"m"},
		"key":   {"FortuneAPI"},
		"pkid":  {strconv.Itoa(q.SystemID)},
		"q":     {q.Category},
	}

	body, err := f.client.get(ctx, f.endpoint, params)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"category":  q.Category,
			"system_id": q.SystemID,
			"error":     err,
		}).Warn("fortune-fetch-failed")
		return FormatFortuneServerDown(q.Category)
	}

	reading, err := ParseFortune(body)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"category": q.Category,
			"error":    err,
		}).Warn("fortune-parse-failed")
		return FormatFortuneUnavailable(q.Category)
	}

	return FormatFortune(q.Category, reading)
}

// ParseFortune accepts both the structured payload and the markup page the
// endpoint has served over time.
func ParseFortune(body []byte) (FortuneReading, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return FortuneReading{}, ErrEmptyFortune
	}
	if trimmed[0] == '{' || trimmed[0] == '(' {
		return parseFortuneJSON(trimmed)
	}
	return parseFortuneMarkup(trimmed)
}

func parseFortuneJSON(body []byte) (FortuneReading, error) {
	// Older responses wrap the object literal in parentheses.
	body = bytes.TrimSuffix(bytes.TrimPrefix(body, []byte("(")), []byte(")"))
	if !gjson.ValidBytes(body) {
		return FortuneReading{}, fmt.Errorf("invalid fortune json")
	}

	day := gjson.GetBytes(body, "result.day")
	if !day.Exists() {
		return FortuneReading{}, ErrEmptyFortune
	}

	reading := FortuneReading{Summary: strings.TrimSpace(day.Get("summary").String())}
	for _, item := range day.Get("content").Array() {
		reading.Years = append(reading.Years, YearFortune{
			Year: strings.TrimSpace(item.Get("year").String()),
			Desc: strings.TrimSpace(item.Get("desc").String()),
		})
	}

	if reading.Summary == "" && len(reading.Years) == 0 {
		return FortuneReading{}, ErrEmptyFortune
	}
	return reading, nil
}

func parseFortuneMarkup(body []byte) (FortuneReading, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return FortuneReading{}, fmt.Errorf("failed to parse fortune markup: %w", err)
	}

	reading := FortuneReading{
		Summary: strings.TrimSpace(doc.Find(".text_box").First().Text()),
	}

	doc.Find(".year_list li").Each(func(_ int, s *goquery.Selection) {
		year := strings.TrimSpace(s.Find("strong").First().Text())
		desc := strings.TrimSpace(s.Find("p").First().Text())
		if year == "" && desc == "" {
			desc = strings.TrimSpace(s.Text())
		}
		if year == "" && desc == "" {
			return
		}
		reading.Years = append(reading.Years, YearFortune{Year: year, Desc: desc})
	})

	if reading.Summary == "" && len(reading.Years) == 0 {
		return FortuneReading{}, ErrEmptyFortune
	}
	return reading, nil
}
