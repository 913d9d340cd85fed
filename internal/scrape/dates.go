package scrape

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PostedAt is either an absolute posting time or the original label when the
// date text could not be parsed. Raw labels never participate in cutoff
// decisions.
type PostedAt struct {
	ts      time.Time
	raw     string
	parsed  bool
	clocked bool
}

// PostedAtTime wraps a posting time that carries a time of day.
func PostedAtTime(t time.Time) PostedAt {
	return PostedAt{ts: t, parsed: true, clocked: true}
}

// PostedAtDate wraps a date-only posting time (midnight default).
func PostedAtDate(t time.Time) PostedAt {
	return PostedAt{ts: t, parsed: true}
}

// PostedAtRaw wraps an unparsed label.
func PostedAtRaw(label string) PostedAt {
	return PostedAt{raw: label}
}

// Time returns the absolute posting time, if one was parsed.
func (p PostedAt) Time() (time.Time, bool) {
	return p.ts, p.parsed
}

// HasClock reports whether the parsed time carries a time of day.
func (p PostedAt) HasClock() bool {
	return p.clocked
}

// Raw returns the unparsed label of a raw value.
func (p PostedAt) Raw() string {
	return p.raw
}

// MarshalJSON emits RFC3339 for parsed times and the raw label otherwise.
func (p PostedAt) MarshalJSON() ([]byte, error) {
	if p.parsed {
		return json.Marshal(p.ts.Format(time.RFC3339))
	}
	return json.Marshal(p.raw)
}

// staleWindow is the recency threshold: 24 hours plus a 30 second grace that
// absorbs run-time jitter and midnight-boundary races.
const staleWindow = 24*time.Hour + 30*time.Second

var monthsByPrefix = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// Normalizer parses heterogeneous listing date text into PostedAt values and
// decides staleness against the cutoff window. The today/yesterday words
// follow the site locale.
type Normalizer struct {
	todayWord     string
	yesterdayWord string
}

// NewNormalizer builds a Normalizer; empty words fall back to English.
func NewNormalizer(todayWord, yesterdayWord string) *Normalizer {
	if todayWord == "" {
		todayWord = "today"
	}
	if yesterdayWord == "" {
		yesterdayWord = "yesterday"
	}
	return &Normalizer{
		todayWord:     strings.ToLower(todayWord),
		yesterdayWord: strings.ToLower(yesterdayWord),
	}
}

// Normalize recognizes "today|yesterday HH:MM" and "<day> <month-abbrev>".
// Anything else comes back as a raw label. An integer day followed by an
// unrecognized month abbreviation fails with UnknownMonthError, which aborts
// extraction for the whole site.
func (n *Normalizer) Normalize(raw string, now time.Time) (PostedAt, error) {
	tokens := strings.Fields(raw)
	if len(tokens) != 2 {
		return PostedAtRaw(raw), nil
	}

	word := strings.ToLower(tokens[0])
	if word == n.todayWord || word == n.yesterdayWord {
		hour, minute, ok := parseClock(tokens[1])
		if !ok {
			return PostedAtRaw(raw), nil
		}
		day := now
		if word == n.yesterdayWord {
			day = day.AddDate(0, 0, -1)
		}
		return PostedAtTime(time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())), nil
	}

	dayNum, err := strconv.Atoi(tokens[0])
	if err != nil {
		return PostedAtRaw(raw), nil
	}
	prefix := strings.ToLower(tokens[1])
	if r := []rune(prefix); len(r) > 3 {
		prefix = string(r[:3])
	}
	month, ok := monthsByPrefix[prefix]
	if !ok {
		return PostedAt{}, &UnknownMonthError{Token: tokens[1]}
	}
	year := now.Year()
	// A December day greater than today's means the entry is from last
	// December, still showing without a year.
	if month == time.December && dayNum > now.Day() {
		year--
	}
	return PostedAtDate(time.Date(year, month, dayNum, 0, 0, 0, 0, now.Location())), nil
}

// IsStale reports whether a posting time falls outside the cutoff window.
// Date-only timestamps (hasClock == false) default to midnight, so the
// comparison shifts them by a full day before applying the window.
func (n *Normalizer) IsStale(ts time.Time, hasClock bool, now time.Time) bool {
	ref := ts
	if !hasClock {
		ref = ref.Add(-24 * time.Hour)
	}
	return now.Add(-staleWindow).After(ref)
}

func parseClock(token string) (hour, minute int, ok bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return hour, minute, true
}
