package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseAmount converts a messy monetary cell to a float64. Currency markers,
// thousands separators and surrounding whitespace are tolerated; the Korean
// 억/만원 unit suffixes are expanded. Anything unparsable yields 0.
func ParseAmount(input string) float64 {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "₩", "")
	s = strings.ReplaceAll(s, "원", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "억"):
		multiplier = 1e8
		s = strings.TrimSuffix(s, "억")
	case strings.HasSuffix(s, "만"):
		multiplier = 1e4
		s = strings.TrimSuffix(s, "만")
	}

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return parsed * multiplier
}

// ParseCount converts a messy integer cell to an int, 0 on failure. Decimal
// cells round toward zero (spreadsheets export counts as "25.0").
func ParseCount(input string) int {
	amount := ParseAmount(input)
	if amount < 0 {
		return 0
	}
	return int(amount)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"20060102",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses the date formats seen in the source exports. Returns nil
// on failure; callers treat a nil date as "no valid span".
func ParseDate(input string) *time.Time {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func DatePtr(v time.Time) *time.Time { return &v }
