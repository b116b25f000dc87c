// Package prayertimes is the top-level policy component: it composes the
// archive, the remote client and the codec into a single "get prayer
// times for date D" operation with a fixed fallback ladder.
package prayertimes

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arkan-app/arkan/internal/aladhan"
	"github.com/arkan-app/arkan/internal/archive"
	"github.com/arkan-app/arkan/internal/metrics"
	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/store"
)

// ErrDataNotFound is returned once every fallback step has failed. No
// other error from the network or decode stages ever reaches callers.
var ErrDataNotFound = archive.ErrNotFound

// Fetcher is the slice of the remote client the orchestrator needs;
// tests substitute a fake to assert call ordering.
type Fetcher interface {
	FetchDay(ctx context.Context, date time.Time, latitude, longitude float64) ([]byte, error)
	FetchYear(ctx context.Context, year int, latitude, longitude float64) ([]byte, error)
}

type Service struct {
	archive *archive.Archive
	store   *store.Store
	client  Fetcher

	// now is replaceable in tests.
	now func() time.Time
}

func New(ar *archive.Archive, st *store.Store, client Fetcher) *Service {
	return &Service{
		archive: ar,
		store:   st,
		client:  client,
		now:     time.Now,
	}
}

// GetOrDownload resolves the prayer times for date at loc through the
// fallback ladder: prune, day archive, network fetch (with write-back
// and opportunistic yearly backup), yearly archive, ErrDataNotFound.
// Steps run strictly sequentially; each is attempted only if the
// previous one failed.
func (s *Service) GetOrDownload(ctx context.Context, date time.Time, loc models.LocationContext) (models.DayRecord, error) {
	bestEffort("prune archive", s.archive.Prune(s.now()))

	if rec, err := s.archive.LookupByDay(date, loc.City, loc.CountryCode); err == nil {
		return rec, nil
	}

	raw, err := s.client.FetchDay(ctx, date, loc.Latitude, loc.Longitude)
	if err == nil {
		rec, decodeErr := aladhan.DecodeDay(raw)
		if decodeErr == nil {
			bestEffort("archive day entry", s.store.UpsertDateEntry(date, loc.City, loc.CountryCode, raw))

			// The day fetch just succeeded, so the connection is good:
			// grab a yearly backup if none exists. One backup serves a
			// whole year, so this rarely runs. Failure is swallowed --
			// the day-level result is already in hand.
			if !s.archive.HasYearlyBackup(date, loc.City, loc.CountryCode) {
				bestEffort("download yearly backup", s.downloadYearlyBackup(ctx, date, loc))
			}

			return rec, nil
		}
		log.Printf("prayertimes: %v", decodeErr)
	} else {
		log.Printf("prayertimes: day fetch: %v", err)
	}

	if rec, err := s.archive.LookupByYear(date, loc.City, loc.CountryCode); err == nil {
		return rec, nil
	}

	metrics.FallbackExhaustedTotal.Inc()
	return models.DayRecord{}, ErrDataNotFound
}

// GetFromArchiveOnly is the read-only fast path: day archive then yearly
// archive, no network, no mutation. Used where an immediate,
// possibly-stale answer beats blocking on the network.
func (s *Service) GetFromArchiveOnly(date time.Time, loc models.LocationContext) (models.DayRecord, error) {
	// The daily archive wins because it reflects a fresher,
	// coordinate-accurate fetch.
	if rec, err := s.archive.LookupByDay(date, loc.City, loc.CountryCode); err == nil {
		return rec, nil
	}
	return s.archive.LookupByYear(date, loc.City, loc.CountryCode)
}

// Prune runs the archive pruning sweep on demand.
func (s *Service) Prune() error {
	return s.archive.Prune(s.now())
}

// downloadYearlyBackup fetches and stores the full-year response for
// date's year. It retries briefly with exponential backoff since it is a
// background optimization whose failure never surfaces.
func (s *Service) downloadYearlyBackup(ctx context.Context, date time.Time, loc models.LocationContext) error {
	year := date.Year()

	operation := func() error {
		raw, err := s.client.FetchYear(ctx, year, loc.Latitude, loc.Longitude)
		if err != nil {
			return err
		}
		// Store only payloads that re-decode; an undecodable backup
		// would read as absent later anyway.
		if _, err := aladhan.DecodeYear(raw); err != nil {
			return backoff.Permanent(err)
		}
		return s.store.UpsertYearEntry(year, loc.City, loc.CountryCode, raw)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.BackupDownloadsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.BackupDownloadsTotal.WithLabelValues("ok").Inc()
	return nil
}

// bestEffort centralizes the attempt-log-continue policy for side
// effects whose failure must not interrupt the ladder.
func bestEffort(op string, err error) {
	if err != nil {
		log.Printf("prayertimes: %s: %v", op, err)
	}
}
