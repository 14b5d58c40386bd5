package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Upstream payloads are loosely typed: amounts arrive as numbers or
// formatted strings, flags as bools, "yes" or 0/1, dates in several layouts.

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

func normalizeString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

var amountToken = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

// normalizeAmount reads the first number in v, so currency prefixes like
// "Rs." and suffixes like "/-" are ignored. ok is false when v held something
// that is not a number.
func normalizeAmount(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, true
		}
		tok := amountToken.FindString(x)
		if tok == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func normalizeBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1", "t":
			return true
		}
	}
	return false
}

// normalizeTimestamp accepts the date layouts and unix seconds or millis.
func normalizeTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case float64:
		if x <= 0 {
			return time.Time{}, false
		}
		if x > 1e12 {
			return time.UnixMilli(int64(x)).UTC(), true
		}
		return time.Unix(int64(x), 0).UTC(), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// normalizeDate renders v as YYYY-MM-DD, or "" when it cannot be read.
func normalizeDate(v any) string {
	if s, ok := v.(string); ok {
		// Plain dates must not shift across midnight through UTC conversion.
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err == nil {
			return t.Format("2006-01-02")
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	t, ok := normalizeTimestamp(v)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// normalizeTimeSlot renders a time or a range as HH:MM or HH:MM-HH:MM in
// 24h. Unreadable input is kept verbatim so nothing is lost.
func normalizeTimeSlot(v any) string {
	s := normalizeString(v)
	if s == "" {
		return ""
	}
	var parts []string
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, " to "):
		parts = strings.SplitN(lower, " to ", 2)
	case strings.Contains(lower, "-"):
		parts = strings.SplitN(lower, "-", 2)
	default:
		parts = []string{lower}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		c, ok := parseClock(p)
		if !ok {
			return s
		}
		out = append(out, c)
	}
	return strings.Join(out, "-")
}

func parseClock(raw string) (string, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	s = strings.ReplaceAll(s, ".", ":")
	pm, am := strings.HasSuffix(s, "pm"), strings.HasSuffix(s, "am")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "pm"), "am")
	if s == "" {
		return "", false
	}
	hs, ms, found := strings.Cut(s, ":")
	if !found {
		ms = "0"
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return "", false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return "", false
	}
	switch {
	case pm || am:
		if h < 1 || h > 12 {
			return "", false
		}
		if pm && h != 12 {
			h += 12
		}
		if am && h == 12 {
			h = 0
		}
	case h < 0 || h > 23:
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}
