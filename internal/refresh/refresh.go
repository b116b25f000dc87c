// Package refresh keeps the archive warm while the service runs: a
// periodic sweep that re-resolves the location, prunes stale entries and
// re-fetches today's timings (which also maintains the yearly backup).
package refresh

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/arkan-app/arkan/internal/geo"
	"github.com/arkan-app/arkan/internal/prayertimes"
)

const defaultInterval = time.Hour

type Refresher struct {
	svc      *prayertimes.Service
	resolver *geo.Resolver
	interval time.Duration
}

func New(svc *prayertimes.Service, resolver *geo.Resolver) *Refresher {
	return &Refresher{
		svc:      svc,
		resolver: resolver,
		interval: defaultInterval,
	}
}

func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("refresh: shutting down")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	loc := r.resolver.Resolve(ctx)

	rec, err := r.svc.GetOrDownload(ctx, time.Now(), loc)
	if err != nil {
		if errors.Is(err, prayertimes.ErrDataNotFound) {
			log.Printf("refresh: no data available for today at %s/%s", loc.City, loc.CountryCode)
		} else {
			log.Printf("refresh: %v", err)
		}
		return
	}
	log.Printf("refresh: resolved timings for %s (%s)", rec.Date.Gregorian.Date, rec.FormattedHijriDate())
}
