package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
)

// dateParseLayout matches FormatDate after the ordinal suffix is stripped.
// hour and minute accept one or two digits.
const dateParseLayout = "2 Jan, 2006 15:4"

var regexpOrdinalDay = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th) `)

// Ordinal returns the english ordinal suffix for day
func Ordinal(day int) string {
	switch day % 100 {
	case 11, 12, 13:
		return "th"
	}

	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// FormatDate renders t in loc as the entry display date, like "2nd Mar, 2024 10:5".
//
// day, hour and minute are not zero padded, seconds are dropped.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}

	return fmt.Sprintf("%d%s %s, %d %d:%d",
		t.Day(), Ordinal(t.Day()), t.Format("Jan"), t.Year(), t.Hour(), t.Minute())
}

// ParseDate parses a display date produced by FormatDate in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	s = strings.TrimSpace(s)
	if !regexpOrdinalDay.MatchString(s) {
		return time.Time{}, errors.Errorf("date %q has no ordinal day", s)
	}

	t, err := time.ParseInLocation(dateParseLayout, regexpOrdinalDay.ReplaceAllString(s, "$1 "), loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse date %q", s)
	}

	return t, nil
}
