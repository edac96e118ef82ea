package timeseries_test

import (
	"testing"
	"time"

	"github.com/Harvlin/SaaS-CRM/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 30, 0, 0, time.UTC)
}

func TestParseInterval(t *testing.T) {
	t.Run("accepts known tokens case-insensitively", func(t *testing.T) {
		for raw, want := range map[string]timeseries.Interval{
			"day":    timeseries.IntervalDay,
			"WEEK":   timeseries.IntervalWeek,
			" Month": timeseries.IntervalMonth,
		} {
			got, err := timeseries.ParseInterval(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		for _, raw := range []string{"", "hour", "weekly", "fortnight"} {
			_, err := timeseries.ParseInterval(raw)
			assert.ErrorIs(t, err, timeseries.ErrUnknownInterval, "token %q", raw)
		}
	})
}

func TestKey(t *testing.T) {
	ts := date(2025, time.March, 9)

	assert.Equal(t, "2025-03-09", timeseries.Key(ts, timeseries.IntervalDay))
	assert.Equal(t, "2025-03", timeseries.Key(ts, timeseries.IntervalMonth))
	// March 9, 2025 is a Sunday, still ISO week 10
	assert.Equal(t, "2025-W10", timeseries.Key(ts, timeseries.IntervalWeek))
}

func TestKeyWeekPadding(t *testing.T) {
	// Early January keys must zero-pad so lexical order matches time order
	assert.Equal(t, "2025-W02", timeseries.Key(date(2025, time.January, 8), timeseries.IntervalWeek))
}

func TestBuckets(t *testing.T) {
	t.Run("daily buckets are gap-free and inclusive", func(t *testing.T) {
		keys := timeseries.Buckets(date(2025, time.February, 27), date(2025, time.March, 2), timeseries.IntervalDay)
		assert.Equal(t, []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}, keys)
	})

	t.Run("monthly buckets cross year boundaries", func(t *testing.T) {
		keys := timeseries.Buckets(date(2024, time.November, 15), date(2025, time.February, 1), timeseries.IntervalMonth)
		assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"}, keys)
	})

	t.Run("weekly buckets advance one ISO week at a time", func(t *testing.T) {
		keys := timeseries.Buckets(date(2025, time.March, 3), date(2025, time.March, 17), timeseries.IntervalWeek)
		assert.Equal(t, []string{"2025-W10", "2025-W11", "2025-W12"}, keys)
	})

	t.Run("end before start yields nothing", func(t *testing.T) {
		keys := timeseries.Buckets(date(2025, time.March, 2), date(2025, time.March, 1), timeseries.IntervalDay)
		assert.Empty(t, keys)
	})

	t.Run("single instant yields one bucket", func(t *testing.T) {
		d := date(2025, time.June, 6)
		keys := timeseries.Buckets(d, d, timeseries.IntervalDay)
		assert.Equal(t, []string{"2025-06-06"}, keys)
	})
}
