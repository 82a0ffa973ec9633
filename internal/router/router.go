// Package router classifies chat messages against an ordered rule table and
// dispatches them to the handler of the first matching rule.
package router

import (
	"context"
	"regexp"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/sirupsen/logrus"
)

// DefaultFallback is sent when a handler fails.
const DefaultFallback = "서버 오류로 응답할 수 없어요."

// Handler produces the reply for a matched message. An empty reply means
// nothing should be sent.
type Handler func(ctx context.Context, text string) (string, error)

// Rule binds a text predicate to a handler.
type Rule struct {
	Name   string
	Match  func(text string) bool
	Handle Handler
}

// Reply is the outcome of a dispatched message.
type Reply struct {
	Rule    string
	Content string
}

// Router evaluates rules in order; the first match wins.
type Router struct {
	rules    []Rule
	fallback string
}

// New creates a Router. An empty fallback uses DefaultFallback.
func New(fallback string, rules ...Rule) *Router {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Router{rules: rules, fallback: fallback}
}

// Rules returns the rule names in evaluation order.
func (r *Router) Rules() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}

// Match returns the first rule whose predicate accepts text.
func (r *Router) Match(text string) (*Rule, bool) {
	if text == "" {
		return nil, false
	}
	for i := range r.rules {
		if r.rules[i].Match(text) {
			return &r.rules[i], true
		}
	}
	return nil, false
}

// Dispatch routes text and runs the matched handler. Handler errors are
// replaced by the fallback message here, so callers never see them. The
// boolean is false when nothing should be sent.
func (r *Router) Dispatch(ctx context.Context, text string) (Reply, bool) {
	rule, ok := r.Match(text)
	if !ok {
		return Reply{}, false
	}

	content, err := rule.Handle(ctx, text)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"rule":  rule.Name,
			"error": err,
		}).Warn("handler-failed-using-fallback")
		return Reply{Rule: rule.Name, Content: r.fallback}, true
	}
	if content == "" {
		logger.WithField("rule", rule.Name).Debug("handler-returned-no-reply")
		return Reply{Rule: rule.Name}, false
	}

	return Reply{Rule: rule.Name, Content: content}, true
}

// MatchRegexp adapts a compiled pattern to a rule predicate.
func MatchRegexp(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}
