// Package archive answers "prayer times for day D at location L" from
// whichever stored entry satisfies it, and keeps the archive small by
// pruning entries for past days and years.
package archive

import (
	"errors"
	"log"
	"time"

	"github.com/arkan-app/arkan/internal/aladhan"
	"github.com/arkan-app/arkan/internal/metrics"
	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/store"
)

// ErrNotFound means no archived entry can answer the query. It is also
// the orchestrator's terminal error once every fallback is exhausted.
var ErrNotFound = errors.New("archive: prayer times not found")

type Archive struct {
	store *store.Store
}

func New(st *store.Store) *Archive {
	return &Archive{store: st}
}

// LookupByDay serves a query from the single-day archive. Entries whose
// bytes no longer decode are treated as absent, not as errors.
func (a *Archive) LookupByDay(date time.Time, city, countryCode string) (models.DayRecord, error) {
	entry, err := a.store.GetDateEntry(date, city, countryCode)
	if err != nil {
		log.Printf("archive: day lookup: %v", err)
		metrics.ArchiveLookupsTotal.WithLabelValues("day", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}
	if entry == nil {
		metrics.ArchiveLookupsTotal.WithLabelValues("day", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}

	rec, err := aladhan.DecodeDay(entry.Payload)
	if err != nil {
		log.Printf("archive: undecodable day entry for %s/%s/%s: %v",
			entry.Date.Format("2006-01-02"), city, countryCode, err)
		metrics.ArchiveLookupsTotal.WithLabelValues("day", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}

	metrics.ArchiveLookupsTotal.WithLabelValues("day", "hit").Inc()
	return rec, nil
}

// LookupByYear serves a query from the yearly backup, indexing the
// decoded month map by the date's month and day-of-month.
func (a *Archive) LookupByYear(date time.Time, city, countryCode string) (models.DayRecord, error) {
	entry, err := a.store.GetYearEntry(date.Year(), city, countryCode)
	if err != nil {
		log.Printf("archive: year lookup: %v", err)
		metrics.ArchiveLookupsTotal.WithLabelValues("year", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}
	if entry == nil {
		metrics.ArchiveLookupsTotal.WithLabelValues("year", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}

	byMonth, err := aladhan.DecodeYear(entry.Payload)
	if err != nil {
		log.Printf("archive: undecodable year entry for %d/%s/%s: %v",
			entry.Year, city, countryCode, err)
		metrics.ArchiveLookupsTotal.WithLabelValues("year", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}

	rec, ok := aladhan.IndexYear(byMonth, int(date.Month()), date.Day())
	if !ok {
		// A complete yearly response always covers the day, but that is
		// not assumed.
		metrics.ArchiveLookupsTotal.WithLabelValues("year", "miss").Inc()
		return models.DayRecord{}, ErrNotFound
	}

	metrics.ArchiveLookupsTotal.WithLabelValues("year", "hit").Inc()
	return rec, nil
}

// HasYearlyBackup is an existence check only; no decode happens.
func (a *Archive) HasYearlyBackup(date time.Time, city, countryCode string) bool {
	ok, err := a.store.HasYearEntry(date.Year(), city, countryCode)
	if err != nil {
		log.Printf("archive: yearly backup check: %v", err)
		return false
	}
	return ok
}

// Prune removes every single-day entry strictly before the start of
// now's day and every yearly entry strictly before now's year, plus
// range-cache windows that ended before today. It runs before any
// lookup so stale data is never returned even if present.
func (a *Archive) Prune(now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	days, err := a.store.PruneDateEntriesBefore(today)
	if err != nil {
		return err
	}
	metrics.ArchivePrunedTotal.WithLabelValues("day").Add(float64(days))

	years, err := a.store.PruneYearEntriesBefore(now.Year())
	if err != nil {
		return err
	}
	metrics.ArchivePrunedTotal.WithLabelValues("year").Add(float64(years))

	ranges, err := a.store.PruneRangeEntriesBefore(today)
	if err != nil {
		return err
	}
	metrics.ArchivePrunedTotal.WithLabelValues("range").Add(float64(ranges))

	if days > 0 || years > 0 || ranges > 0 {
		log.Printf("archive: pruned %d day, %d year, %d range entries", days, years, ranges)
	}
	return nil
}
