package cmd

import (
	"fmt"
	"time"

	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
)

// resolveWindow turns the --from/--to/--week flags into a half-open window
// [from, to) of whole days in now's location. Without flags the window is
// today.
func resolveWindow(fromFlag, toFlag string, week bool, now time.Time) (time.Time, time.Time, error) {
	if week {
		if fromFlag != "" || toFlag != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: --week cannot be combined with --from or --to", syncerr.ErrInvalidInput)
		}
		monday, sunday := timecalc.WeekRange(now)
		return monday, nextDay(sunday), nil
	}

	if toFlag != "" && fromFlag == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --from is required when --to is specified", syncerr.ErrInvalidInput)
	}
	if fromFlag == "" {
		return timecalc.StartOfDay(now), nextDay(now), nil
	}

	from, err := boundary("--from", fromFlag, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to := now
	if toFlag != "" {
		if to, err = boundary("--to", toFlag, now); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	from = timecalc.StartOfDay(from)
	end := nextDay(to)
	if !end.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: --to %s is before --from %s", syncerr.ErrInvalidInput,
			to.Format(timecalc.DateLayout), from.Format(timecalc.DateLayout))
	}
	return from, end, nil
}

func boundary(flag, value string, now time.Time) (time.Time, error) {
	t, err := timecalc.ResolveBoundary(value, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s value %q: %w", flag, value, err)
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: cannot understand %s value %q", syncerr.ErrInvalidInput, flag, value)
	}
	return t, nil
}

// nextDay returns the start of the day after t.
func nextDay(t time.Time) time.Time {
	return timecalc.StartOfDay(t).AddDate(0, 0, 1)
}
