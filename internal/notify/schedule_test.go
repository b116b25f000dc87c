package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/store"
)

var testNow = time.Date(2025, 4, 16, 10, 0, 0, 0, time.UTC)

var testLoc = models.LocationContext{
	Latitude:    21.42,
	Longitude:   39.83,
	City:        "Makkah",
	CountryCode: "SA",
}

type fakeRangeFetcher struct {
	payload []byte
	err     error
	calls   int
}

func (f *fakeRangeFetcher) FetchRange(ctx context.Context, start, end time.Time, latitude, longitude float64) ([]byte, error) {
	f.calls++
	return f.payload, f.err
}

func setupBuilder(t *testing.T, fetcher *fakeRangeFetcher) (*Builder, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b := NewBuilder(fetcher, st)
	b.now = func() time.Time { return testNow }
	return b, st
}

func rangeJSON(dates ...string) []byte {
	var records []string
	for _, date := range dates {
		records = append(records, fmt.Sprintf(`{
			"timings": {
				"Fajr": "04:30 (+03)",
				"Sunrise": "05:55 (+03)",
				"Dhuhr": "12:20 (+03)",
				"Asr": "15:45 (+03)",
				"Maghrib": "18:40 (+03)",
				"Isha": "20:10 (+03)"
			},
			"date": {"gregorian": {"date": %q}}
		}`, date))
	}
	return []byte(fmt.Sprintf(`{"code": 200, "status": "OK", "data": [%s]}`, strings.Join(records, ",")))
}

func TestBuildSchedule(t *testing.T) {
	fetcher := &fakeRangeFetcher{payload: rangeJSON("16-04-2025", "17-04-2025")}
	b, _ := setupBuilder(t, fetcher)

	reminders, err := b.BuildSchedule(context.Background(), testLoc, Options{Days: 2, Zone: time.UTC})
	require.NoError(t, err)

	// At 10:00 four prayers remain today, five tomorrow, plus the trailer.
	require.Len(t, reminders, 10)

	first := reminders[0]
	assert.Equal(t, models.Dhuhr, first.Prayer)
	assert.Equal(t, "Time for Dhuhr", first.Title)
	assert.Equal(t, time.Date(2025, 4, 16, 12, 20, 0, 0, time.UTC), first.At)

	for _, r := range reminders[:len(reminders)-1] {
		assert.True(t, r.At.After(testNow), "reminder %s at %v is in the past", r.Prayer, r.At)
		assert.NotEmpty(t, r.Body)
		if r.Prayer == models.Fajr {
			assert.Equal(t, fajrBody, r.Body)
		}
	}

	trailer := reminders[len(reminders)-1]
	assert.Equal(t, "Reminders stopped", trailer.Title)
	lastIsha := time.Date(2025, 4, 17, 20, 10, 0, 0, time.UTC)
	assert.Equal(t, lastIsha.Add(5*time.Minute), trailer.At)
}

func TestBuildSchedule_DisabledPrayers(t *testing.T) {
	fetcher := &fakeRangeFetcher{payload: rangeJSON("16-04-2025", "17-04-2025")}
	b, _ := setupBuilder(t, fetcher)

	reminders, err := b.BuildSchedule(context.Background(), testLoc, Options{
		Days: 2,
		Zone: time.UTC,
		Disabled: map[models.Prayer]bool{
			models.Fajr: true,
			models.Isha: true,
		},
	})
	require.NoError(t, err)

	for _, r := range reminders {
		assert.NotEqual(t, models.Fajr, r.Prayer)
		assert.NotEqual(t, models.Isha, r.Prayer)
	}
	// 3 remaining today, 3 tomorrow, plus the trailer.
	assert.Len(t, reminders, 7)
}

func TestBuildSchedule_ZoneConversion(t *testing.T) {
	fetcher := &fakeRangeFetcher{payload: rangeJSON("16-04-2025", "17-04-2025")}
	b, _ := setupBuilder(t, fetcher)

	zone := time.FixedZone("AST", 3*60*60)
	reminders, err := b.BuildSchedule(context.Background(), testLoc, Options{Days: 2, Zone: zone})
	require.NoError(t, err)
	require.NotEmpty(t, reminders)

	// Provider times are UTC; 12:20 UTC renders as 15:20 in UTC+3 while
	// naming the same instant.
	first := reminders[0]
	assert.Equal(t, models.Dhuhr, first.Prayer)
	assert.Equal(t, "15:20", first.At.Format("15:04"))
	assert.True(t, first.At.Equal(time.Date(2025, 4, 16, 12, 20, 0, 0, time.UTC)))
}

func TestBuildSchedule_ReusesCachedWindow(t *testing.T) {
	fetcher := &fakeRangeFetcher{payload: rangeJSON("16-04-2025", "17-04-2025")}
	b, _ := setupBuilder(t, fetcher)

	_, err := b.BuildSchedule(context.Background(), testLoc, Options{Days: 2, Zone: time.UTC})
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)

	// The second build within the reuse window is served from the cache.
	fetcher.err = errors.New("must not be called")
	fetcher.payload = nil
	_, err = b.BuildSchedule(context.Background(), testLoc, Options{Days: 2, Zone: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestFetchRangeCached_StaleCacheBeatsFailedFetch(t *testing.T) {
	fetcher := &fakeRangeFetcher{err: errors.New("connection refused")}
	b, st := setupBuilder(t, fetcher)

	start := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	require.NoError(t, st.UpsertRangeEntry(start, end, testLoc.City, testLoc.CountryCode, []byte("stale window")))

	// Push now past the reuse window so a fresh fetch is attempted first.
	b.now = func() time.Time { return time.Now().Add(reuseWindow + time.Hour) }

	raw, err := b.fetchRangeCached(context.Background(), start, end, testLoc)
	require.NoError(t, err)
	assert.Equal(t, "stale window", string(raw))
	assert.Equal(t, 1, fetcher.calls)
}

func TestFetchRangeCached_NoCacheAndFailedFetch(t *testing.T) {
	fetcher := &fakeRangeFetcher{err: errors.New("connection refused")}
	b, _ := setupBuilder(t, fetcher)

	start := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	_, err := b.fetchRangeCached(context.Background(), start, start.AddDate(0, 0, 1), testLoc)
	require.Error(t, err)
}

type fakeScheduler struct {
	granted   bool
	authErr   error
	cleared   bool
	scheduled []Reminder
}

func (f *fakeScheduler) RequestAuthorization(ctx context.Context) (bool, error) {
	return f.granted, f.authErr
}

func (f *fakeScheduler) ClearPending(ctx context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeScheduler) Schedule(ctx context.Context, reminders []Reminder) error {
	f.scheduled = reminders
	return nil
}

func TestApply(t *testing.T) {
	b, _ := setupBuilder(t, &fakeRangeFetcher{})
	reminders := []Reminder{{Prayer: models.Dhuhr, Title: "Time for Dhuhr"}}

	denied := &fakeScheduler{granted: false}
	err := b.Apply(context.Background(), denied, reminders)
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.False(t, denied.cleared, "denied authorization must not clear pending reminders")

	granted := &fakeScheduler{granted: true}
	require.NoError(t, b.Apply(context.Background(), granted, reminders))
	assert.True(t, granted.cleared)
	assert.Equal(t, reminders, granted.scheduled)
}
