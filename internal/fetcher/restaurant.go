package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRestaurantURL is the search results page scraped for recommendations.
	DefaultRestaurantURL = "https://search.naver.com/search.naver"
	// DefaultRestaurantSelector matches result anchors on the search page.
	DefaultRestaurantSelector = "a.api_txt_lines.total_tit"
	// DefaultRestaurantPages is the number of result pages fetched concurrently.
	DefaultRestaurantPages = 2
)

// ErrNoRestaurants is returned when no page yielded a single result.
var ErrNoRestaurants = errors.New("server error")

// Restaurant is one scraped search result.
type Restaurant struct {
	Title string
	Href  string
}

// RestaurantConfig configures a RestaurantClient.
type RestaurantConfig struct {
	Endpoint   string
	Selector   string
	Pages      int
	SampleSize int
}

// RestaurantClient recommends restaurants from a search results page.
type RestaurantClient struct {
	client  *Client
	config  RestaurantConfig
	shuffle func(n int, swap func(i, j int))
}

// NewRestaurantClient creates a RestaurantClient, filling unset fields with defaults.
func NewRestaurantClient(client *Client, cfg RestaurantConfig) *RestaurantClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRestaurantURL
	}
	if cfg.Selector == "" {
		cfg.Selector = DefaultRestaurantSelector
	}
	if cfg.Pages <= 0 {
		cfg.Pages = DefaultRestaurantPages
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = constants.RestaurantSampleSize
	}
	return &RestaurantClient{client: client, config: cfg, shuffle: rand.Shuffle}
}

// Recommend searches for keyword and returns up to SampleSize random links,
// one per line. Pages that fail contribute nothing and do not cancel their
// siblings; ErrNoRestaurants is returned only when every page came back empty.
func (r *RestaurantClient) Recommend(ctx context.Context, keyword string) (string, error) {
	pages := make([][]Restaurant, r.config.Pages)

	var g errgroup.Group
	for i := range pages {
		start := 1 + i*constants.RestaurantPageSize
		g.Go(func() error {
			items, err := r.fetchPage(ctx, keyword, start)
			if err != nil {
				return fmt.Errorf("page %d: %w", start, err)
			}
			pages[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.WithFields(logrus.Fields{
			"keyword": keyword,
			"error":   err,
		}).Warn("restaurant-search-partially-failed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var all []Restaurant
	for _, p := range pages {
		all = append(all, p...)
	}

	if len(all) == 0 {
		logger.WithField("keyword", keyword).Warn("restaurant-search-returned-nothing")
		return "", ErrNoRestaurants
	}

	picked := SampleRestaurants(all, r.config.SampleSize, r.shuffle)
	logger.WithFields(logrus.Fields{
		"keyword": keyword,
		"found":   len(all),
		"picked":  len(picked),
	}).Debug("restaurants-recommended")

	return FormatRestaurants(picked), nil
}

func (r *RestaurantClient) fetchPage(ctx context.Context, keyword string, start int) ([]Restaurant, error) {
	params := url.Values{
		"query": {keyword},
		"start": {strconv.Itoa(start)},
		"where": {"post"},
		"sm":    {"tab_jum"},
	}

	body, err := r.client.get(ctx, r.config.Endpoint, params)
	if err != nil {
		return nil, err
	}
	return ParseRestaurants(body, r.config.Selector)
}

// ParseRestaurants extracts title/href pairs from anchors matching selector.
func ParseRestaurants(body []byte, selector string) ([]Restaurant, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search markup: %w", err)
	}

	var out []Restaurant
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		title := strings.TrimSpace(s.Text())
		if title == "" {
			title, _ = s.Attr("title")
			title = strings.TrimSpace(title)
		}
		out = append(out, Restaurant{Title: title, Href: strings.TrimSpace(href)})
	})
	return out, nil
}

// SampleRestaurants picks up to n entries without replacement. The input is
// not modified.
func SampleRestaurants(items []Restaurant, n int, shuffle func(n int, swap func(i, j int))) []Restaurant {
	pool := make([]Restaurant, len(items))
	copy(pool, items)
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n < len(pool) {
		pool = pool[:n]
	}
	return pool
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// FormatRestaurants renders one <href|title> link per line.
func FormatRestaurants(items []Restaurant) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "<"+it.Href+"|"+slackEscaper.Replace(it.Title)+">")
	}
	return strings.Join(lines, "\n")
}
