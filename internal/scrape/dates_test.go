package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRelativeDays(t *testing.T) {
	t.Parallel()
	n := NewNormalizer("", "")
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)

	posted, err := n.Normalize("today 14:05", now)
	require.NoError(t, err)
	ts, ok := posted.Time()
	require.True(t, ok)
	require.True(t, posted.HasClock())
	require.Equal(t, time.Date(2024, time.January, 10, 14, 5, 0, 0, time.UTC), ts)

	posted, err = n.Normalize("yesterday 09:00", now)
	require.NoError(t, err)
	ts, ok = posted.Time()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.January, 9, 9, 0, 0, 0, time.UTC), ts)
}

func TestNormalizeLocaleWords(t *testing.T) {
	t.Parallel()
	n := NewNormalizer("сёння", "учора")
	now := time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC)

	posted, err := n.Normalize("учора 23:15", now)
	require.NoError(t, err)
	ts, ok := posted.Time()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.March, 1, 23, 15, 0, 0, time.UTC), ts)
}

func TestNormalizeMonthAbbreviation(t *testing.T) {
	t.Parallel()
	n := NewNormalizer("", "")

	tests := []struct {
		name string
		raw  string
		now  time.Time
		want time.Time
	}{
		{
			name: "december rollback",
			raw:  "29 dec",
			now:  time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC),
			want: time.Date(2023, time.December, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "december no rollback",
			raw:  "29 dec",
			now:  time.Date(2024, time.December, 30, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, time.December, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "long abbreviation uses prefix",
			raw:  "3 march",
			now:  time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			posted, err := n.Normalize(tt.raw, tt.now)
			require.NoError(t, err)
			ts, ok := posted.Time()
			require.True(t, ok)
			require.False(t, posted.HasClock())
			require.Equal(t, tt.want, ts)
		})
	}
}

func TestNormalizeUnknownMonthIsFatal(t *testing.T) {
	t.Parallel()
	n := NewNormalizer("", "")
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)

	_, err := n.Normalize("29 xyz", now)
	var monthErr *UnknownMonthError
	require.ErrorAs(t, err, &monthErr)
	require.Equal(t, "xyz", monthErr.Token)

	// Multi-byte month tokens are cut on rune boundaries; the error carries
	// the original token intact.
	_, err = n.Normalize("17 декабря", now)
	require.ErrorAs(t, err, &monthErr)
	require.Equal(t, "декабря", monthErr.Token)
}

func TestNormalizeRawFallthrough(t *testing.T) {
	t.Parallel()
	n := NewNormalizer("", "")
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)

	tests := []string{
		"some unparseable text",
		"today",
		"today 14:05:30 extra",
		"today fourteen:05",
		"notaday 14:05",
	}
	for _, raw := range tests {
		posted, err := n.Normalize(raw, now)
		require.NoError(t, err, raw)
		_, ok := posted.Time()
		require.False(t, ok, raw)
		require.Equal(t, raw, posted.Raw(), raw)
	}
}

func TestIsStaleBoundary(t *testing.T) {
	t.Parallel()
	n := NewNormalizer("", "")
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)

	require.True(t, n.IsStale(now.Add(-(24*time.Hour + 31*time.Second)), true, now))
	require.False(t, n.IsStale(now.Add(-(24*time.Hour + 29*time.Second)), true, now))

	// Date-only timestamps are shifted a full day before the window applies.
	require.True(t, n.IsStale(now.Add(-31*time.Second), false, now))
	require.False(t, n.IsStale(now.Add(-29*time.Second), false, now))
}

func TestPostedAtJSON(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, time.January, 9, 9, 0, 0, 0, time.UTC)
	b, err := PostedAtTime(ts).MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `"2024-01-09T09:00:00Z"`, string(b))

	b, err = PostedAtRaw("few seconds ago").MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `"few seconds ago"`, string(b))
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	p := ParsePrice("1 250,50 BYN")
	amount, ok := p.Amount()
	require.True(t, ok)
	require.InDelta(t, 1250.5, amount, 0.0001)

	p = ParsePrice("1.200,00")
	amount, ok = p.Amount()
	require.False(t, ok)
	require.Equal(t, "1.200.00", p.Raw())

	p = ParsePrice("договорная")
	_, ok = p.Amount()
	require.False(t, ok)
	require.Equal(t, "", p.Raw())
}
