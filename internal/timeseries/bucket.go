// Package timeseries converts date ranges into ordered, gap-free bucket
// sequences for trend series (day, ISO week, or month granularity).
package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the width of a time bucket
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// ErrUnknownInterval is returned for interval tokens other than day/week/month.
// Unknown tokens are rejected rather than silently defaulting.
var ErrUnknownInterval = fmt.Errorf("unknown interval (expected day, week, or month)")

// ParseInterval parses an interval token, case-insensitively.
func ParseInterval(s string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case IntervalDay:
		return IntervalDay, nil
	case IntervalWeek:
		return IntervalWeek, nil
	case IntervalMonth:
		return IntervalMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// Key returns the bucket key a timestamp falls into.
// Day keys are "2006-01-02", week keys "2006-W04" (ISO week, zero-padded
// so lexical order matches chronological order), month keys "2006-01".
func Key(t time.Time, interval Interval) string {
	switch interval {
	case IntervalWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case IntervalMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// Buckets returns the ordered sequence of bucket keys covering the inclusive
// range [start, end]. Every bucket in the range is present, so callers can
// build gap-filled series by indexing into the result.
func Buckets(start, end time.Time, interval Interval) []string {
	if end.Before(start) {
		return nil
	}

	keys := make([]string, 0, 8)
	cur := bucketStart(start, interval)
	endKey := Key(end, interval)
	for {
		key := Key(cur, interval)
		keys = append(keys, key)
		if key == endKey {
			break
		}
		cur = nextBucket(cur, interval)
	}
	return keys
}

// bucketStart truncates a timestamp to the beginning of its bucket
func bucketStart(t time.Time, interval Interval) time.Time {
	switch interval {
	case IntervalWeek:
		// Back up to Monday, the ISO week start
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case IntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

func nextBucket(t time.Time, interval Interval) time.Time {
	switch interval {
	case IntervalWeek:
		return t.AddDate(0, 0, 7)
	case IntervalMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
