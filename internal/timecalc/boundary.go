package timecalc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
)

// MaxDaysBack is the largest relative day count ResolveBoundary accepts.
const MaxDaysBack = 365

var (
	dayCountRe         = regexp.MustCompile(`^[0-9]+$`)
	negativeDayCountRe = regexp.MustCompile(`^-[0-9]+$`)
)

var absoluteLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

var naturalParser = newNaturalParser()

func newNaturalParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ResolveBoundary turns a window boundary into a concrete time.
//
// An all-digit value N means "N days before now, at start of day" and must not
// exceed MaxDaysBack. Integers are handled through their decimal form. Any other
// string is parsed as a date ("2026-02-27", RFC 3339) or a natural-language
// expression ("yesterday"). A string that matches none of these yields the zero
// time and a nil error; callers must check IsZero before using the result.
func ResolveBoundary(input any, now time.Time) (time.Time, error) {
	s, ok := boundaryString(input)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unsupported boundary type %T", syncerr.ErrInvalidInput, input)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: input is required", syncerr.ErrInvalidInput)
	}

	if negativeDayCountRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: day count must not be negative, got %s", syncerr.ErrInvalidInput, s)
	}
	if dayCountRe.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil || n > MaxDaysBack {
			return time.Time{}, fmt.Errorf("%w: day count must be between 0 and %d, got %s", syncerr.ErrOutOfRange, MaxDaysBack, s)
		}
		return StartOfDay(now.AddDate(0, 0, -n)), nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	r, err := naturalParser.Parse(s, now)
	if err != nil || r == nil {
		return time.Time{}, nil
	}
	return r.Time, nil
}

// boundaryString coerces the supported input types to their string form.
func boundaryString(input any) (string, bool) {
	switch v := input.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", true
		}
		return *v, true
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	}
	return "", false
}
