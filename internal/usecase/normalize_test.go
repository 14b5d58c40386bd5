package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{499.0, 499, true},
		{"₹1,250.50", 1250.5, true},
		{"Rs. 100", 100, true},
		{"Rs.1,250.50", 1250.5, true},
		{"100/-", 100, true},
		{"-20.5", -20.5, true},
		{"", 0, true},
		{nil, 0, true},
		{"free", 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := normalizeAmount(c.in)
		assert.Equal(t, c.want, got, "%v", c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
	}
}

func TestNormalizeBool(t *testing.T) {
	for _, v := range []any{true, "true", "YES", "1", 1.0} {
		assert.True(t, normalizeBool(v), "%v", v)
	}
	for _, v := range []any{false, "false", "no", "0", 0.0, nil, ""} {
		assert.False(t, normalizeBool(v), "%v", v)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[any]string{
		"2026-03-09":                "2026-03-09",
		"2026-03-09T23:30:00+05:30": "2026-03-09",
		"09/03/2026":                "2026-03-09",
		"09-03-2026":                "2026-03-09",
		"9 Mar 2026":                "2026-03-09",
		"someday":                   "",
		nil:                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeDate(in), "%v", in)
	}
}

func TestNormalizeTimeSlot(t *testing.T) {
	cases := map[any]string{
		"10:00 AM":            "10:00",
		"10am":                "10:00",
		"12 pm":               "12:00",
		"12:15 am":            "00:15",
		"14:30":               "14:30",
		"10:00 AM - 12:00 PM": "10:00-12:00",
		"6pm to 8.30pm":       "18:00-20:30",
		"after lunch":         "after lunch",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeTimeSlot(in), "%v", in)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	ts, ok := normalizeTimestamp(1.7e9)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1.7e9, 0).UTC(), ts)

	ts, ok = normalizeTimestamp(1.7e12)
	assert.True(t, ok)
	assert.Equal(t, time.UnixMilli(1.7e12).UTC(), ts)

	_, ok = normalizeTimestamp("yesterday")
	assert.False(t, ok)
}

func TestNormalizeString(t *testing.T) {
	assert.Equal(t, "42", normalizeString(42.0))
	assert.Equal(t, "store-1", normalizeString(" store-1 "))
	assert.Equal(t, "", normalizeString(nil))
}

func TestNormalizeOrderID(t *testing.T) {
	assert.Equal(t, "ORD1", NormalizeOrderID("  #ORD1 "))
	assert.Equal(t, "ORD1", NormalizeOrderID("ORD1"))
	assert.Equal(t, "", NormalizeOrderID(" # "))
}
