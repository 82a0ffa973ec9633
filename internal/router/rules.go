package router

import (
	"context"
	"regexp"

	"github.com/keepmind9/tubebot/internal/fetcher"
	"github.com/keepmind9/tubebot/pkg/constants"
)

// Rule names, in default evaluation order.
const (
	RuleFortuneZodiac        = "fortune-zodiac"
	RuleFortuneConstellation = "fortune-constellation"
	RuleRestaurant           = "restaurant"
	RuleLunchTomorrow        = "lunch-tomorrow"
	RuleLunchToday           = "lunch-today"
	RuleHospital             = "hospital"
)

const (
	// DefaultRestaurantKeyword is searched when someone is hungry.
	DefaultRestaurantKeyword = "논현 학동 맛집"
	// DefaultHospitalReply is the gated reply to hospital talk.
	DefaultHospitalReply = ":hospital: 얼른 나으세요 :pill:"
)

var (
	hungerPattern        = regexp.MustCompile(`배고파|배고픔|뭐\s?먹을까|뭐\s?먹지|맛집\s?추천|식사\s+추천|저녁\s+추천`)
	lunchTomorrowPattern = regexp.MustCompile(`내일\s?점심|내일\s?식단표`)
	lunchTodayPattern    = regexp.MustCompile(`점심|식단표`)
	hospitalPattern      = regexp.MustCompile(`병원|아파요|아프다|감기`)
)

// FortuneFetcher returns a formatted fortune reading.
type FortuneFetcher interface {
	Fetch(ctx context.Context, q fetcher.FortuneQuery) string
}

// RestaurantRecommender returns formatted restaurant links.
type RestaurantRecommender interface {
	Recommend(ctx context.Context, keyword string) (string, error)
}

// LunchFetcher returns a formatted lunch menu.
type LunchFetcher interface {
	Fetch(ctx context.Context, category string) string
}

// Handlers are the collaborators behind the default rules. A nil fetcher
// drops the rules that need it.
type Handlers struct {
	Fortune           FortuneFetcher
	Restaurant        RestaurantRecommender
	Lunch             LunchFetcher
	Gate              *TimeGate
	RestaurantKeyword string
	HospitalReply     string
}

// DefaultRules builds the rule table. Fortune phrases come first because
// their text can also contain keywords of later rules.
func DefaultRules(h Handlers) []Rule {
	if h.RestaurantKeyword == "" {
		h.RestaurantKeyword = DefaultRestaurantKeyword
	}
	if h.HospitalReply == "" {
		h.HospitalReply = DefaultHospitalReply
	}

	var rules []Rule

	if h.Fortune != nil {
		rules = append(rules,
			fortuneRule(RuleFortuneZodiac, ZodiacPhrase, constants.FortuneZodiacID, h.Fortune),
			fortuneRule(RuleFortuneConstellation, ConstellationPhrase, constants.FortuneAlternateID, h.Fortune),
		)
	}

	if h.Restaurant != nil {
		keyword := h.RestaurantKeyword
		rules = append(rules, Rule{
			Name:  RuleRestaurant,
			Match: MatchRegexp(hungerPattern),
			Handle: func(ctx context.Context, _ string) (string, error) {
				return h.Restaurant.Recommend(ctx, keyword)
			},
		})
	}

	if h.Lunch != nil {
		rules = append(rules,
			lunchRule(RuleLunchTomorrow, lunchTomorrowPattern, fetcher.LunchTomorrow, h.Lunch),
			lunchRule(RuleLunchToday, lunchTodayPattern, fetcher.LunchToday, h.Lunch),
		)
	}

	if h.Gate != nil {
		gate, reply := h.Gate, h.HospitalReply
		rules = append(rules, Rule{
			Name:  RuleHospital,
			Match: MatchRegexp(hospitalPattern),
			Handle: func(context.Context, string) (string, error) {
				return gate.Reply(reply), nil
			},
		})
	}

	return rules
}

func fortuneRule(name string, phrase *regexp.Regexp, systemID int, f FortuneFetcher) Rule {
	return Rule{
		Name:  name,
		Match: MatchRegexp(phrase),
		Handle: func(ctx context.Context, text string) (string, error) {
			category, ok := ExtractCategory(text, phrase)
			if !ok {
				return fetcher.FormatFortuneUnavailable(""), nil
			}
			return f.Fetch(ctx, fetcher.FortuneQuery{Category: category, SystemID: systemID}), nil
		},
	}
}

func lunchRule(name string, pattern *regexp.Regexp, category string, l LunchFetcher) Rule {
	return Rule{
		Name:  name,
		Match: MatchRegexp(pattern),
		Handle: func(ctx context.Context, _ string) (string, error) {
			return l.Fetch(ctx, category), nil
		},
	}
}
