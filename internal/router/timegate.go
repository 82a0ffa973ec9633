package router

import "time"

// DefaultQuietHour is the local hour from which gated replies are suppressed.
const DefaultQuietHour = 20

// TimeGate suppresses replies during quiet hours.
type TimeGate struct {
	quietHour int
	location  *time.Location
	now       func() time.Time
}

// NewTimeGate creates a gate that is closed from quietHour until midnight in loc.
func NewTimeGate(quietHour int, loc *time.Location) *TimeGate {
	if quietHour <= 0 || quietHour > 24 {
		quietHour = DefaultQuietHour
	}
	if loc == nil {
		loc = time.Local
	}
	return &TimeGate{quietHour: quietHour, location: loc, now: time.Now}
}

// WithClock replaces the time source.
func (g *TimeGate) WithClock(now func() time.Time) *TimeGate {
	g.now = now
	return g
}

// Open reports whether replies are currently allowed.
func (g *TimeGate) Open() bool {
	return g.now().In(g.location).Hour() < g.quietHour
}

// Reply returns message while the gate is open and "" otherwise.
func (g *TimeGate) Reply(message string) string {
	if message == "" || !g.Open() {
		return ""
	}
	return message
}
