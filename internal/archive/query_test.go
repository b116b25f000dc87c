package archive

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/arkan-app/arkan/internal/store"
)

func setupArchive(t *testing.T) (*Archive, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func dayJSON(date string) []byte {
	return []byte(fmt.Sprintf(`{
		"code": 200, "status": "OK",
		"data": {
			"timings": {"Fajr": "04:30 (+03)", "Isha": "20:10 (+03)"},
			"date": {"gregorian": {"date": %q}}
		}
	}`, date))
}

func yearJSON(year int) []byte {
	var months []string
	for m := 1; m <= 12; m++ {
		var days []string
		for d := 1; d <= 28; d++ {
			days = append(days, fmt.Sprintf(`{
				"timings": {"Fajr": "04:30 (+03)", "Isha": "20:10 (+03)"},
				"date": {"gregorian": {"date": "%02d-%02d-%d"}}
			}`, d, m, year))
		}
		months = append(months, fmt.Sprintf(`"%d": [%s]`, m, strings.Join(days, ",")))
	}
	return []byte(fmt.Sprintf(`{"code": 200, "status": "OK", "data": {%s}}`, strings.Join(months, ",")))
}

func TestLookupByDay(t *testing.T) {
	ar, st := setupArchive(t)
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	_, err := ar.LookupByDay(date, "Makkah", "SA")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.UpsertDateEntry(date, "Makkah", "SA", dayJSON("16-04-2025")))

	rec, err := ar.LookupByDay(date, "Makkah", "SA")
	require.NoError(t, err)
	assert.Equal(t, "16-04-2025", rec.Date.Gregorian.Date)

	// Another location does not see the entry.
	_, err = ar.LookupByDay(date, "Cairo", "EG")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupByDay_UndecodableBytesAreAMiss(t *testing.T) {
	ar, st := setupArchive(t)
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.UpsertDateEntry(date, "Makkah", "SA", []byte("corrupt garbage")))

	_, err := ar.LookupByDay(date, "Makkah", "SA")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupByYear(t *testing.T) {
	ar, st := setupArchive(t)
	require.NoError(t, st.UpsertYearEntry(2025, "Makkah", "SA", yearJSON(2025)))

	rec, err := ar.LookupByYear(time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC), "Makkah", "SA")
	require.NoError(t, err)
	assert.Equal(t, "16-04-2025", rec.Date.Gregorian.Date)

	// December 1st exercises indexing at a different month.
	rec, err = ar.LookupByYear(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), "Makkah", "SA")
	require.NoError(t, err)
	assert.Equal(t, "01-12-2025", rec.Date.Gregorian.Date)

	_, err = ar.LookupByYear(time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC), "Makkah", "SA")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupByYear_UndecodableBytesAreAMiss(t *testing.T) {
	ar, st := setupArchive(t)
	require.NoError(t, st.UpsertYearEntry(2025, "Makkah", "SA", []byte("{]")))

	_, err := ar.LookupByYear(time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC), "Makkah", "SA")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHasYearlyBackup(t *testing.T) {
	ar, st := setupArchive(t)
	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	assert.False(t, ar.HasYearlyBackup(date, "Makkah", "SA"))

	// Existence check only: even undecodable bytes count as present, so a
	// corrupt backup is not re-downloaded every hour.
	require.NoError(t, st.UpsertYearEntry(2025, "Makkah", "SA", []byte("corrupt")))
	assert.True(t, ar.HasYearlyBackup(date, "Makkah", "SA"))
}

func TestPrune(t *testing.T) {
	ar, st := setupArchive(t)
	now := time.Date(2025, 4, 16, 10, 30, 0, 0, time.UTC)

	require.NoError(t, st.UpsertDateEntry(now.AddDate(0, 0, -1), "Makkah", "SA", dayJSON("15-04-2025")))
	require.NoError(t, st.UpsertDateEntry(now, "Makkah", "SA", dayJSON("16-04-2025")))
	require.NoError(t, st.UpsertYearEntry(2024, "Makkah", "SA", []byte("old")))
	require.NoError(t, st.UpsertYearEntry(2025, "Makkah", "SA", yearJSON(2025)))

	require.NoError(t, ar.Prune(now))

	_, err := ar.LookupByDay(now.AddDate(0, 0, -1), "Makkah", "SA")
	assert.ErrorIs(t, err, ErrNotFound, "yesterday's entry should be pruned")

	_, err = ar.LookupByDay(now, "Makkah", "SA")
	assert.NoError(t, err, "today's entry should survive")

	assert.False(t, ar.HasYearlyBackup(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "Makkah", "SA"))
	assert.True(t, ar.HasYearlyBackup(now, "Makkah", "SA"))
}
