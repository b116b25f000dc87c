// Package notify builds the rolling prayer-reminder schedule: a range
// fetch covering the next days, re-rendered from the provider's UTC
// strings into the device timezone as (label, timestamp) pairs. The OS
// delivery mechanism is a collaborator behind the Scheduler interface.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/arkan-app/arkan/internal/aladhan"
	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/store"
)

// ErrNotAuthorized is returned when the scheduling collaborator declines
// to deliver notifications.
var ErrNotAuthorized = errors.New("notify: not authorized")

// DefaultDays is the rolling window length; after the last reminder a
// trailer tells the user to reopen the app.
const DefaultDays = 12

// reuseWindow bounds how old a cached range response may be before a
// fresh request is attempted. The window rolls by a day at most, so
// responses a few hours apart are nearly identical.
const reuseWindow = 6 * time.Hour

// Reminder is one scheduled notification: a prayer label and the
// local-time instant it fires at.
type Reminder struct {
	Prayer models.Prayer
	Title  string
	Body   string
	At     time.Time
}

// Scheduler is the OS notification collaborator.
type Scheduler interface {
	RequestAuthorization(ctx context.Context) (bool, error)
	ClearPending(ctx context.Context) error
	Schedule(ctx context.Context, reminders []Reminder) error
}

// RangeFetcher is the slice of the remote client the builder needs.
type RangeFetcher interface {
	FetchRange(ctx context.Context, start, end time.Time, latitude, longitude float64) ([]byte, error)
}

// Options tunes schedule construction.
type Options struct {
	Days     int
	Disabled map[models.Prayer]bool
	// Zone is the display timezone reminders are rendered in; nil means
	// the system's local zone.
	Zone *time.Location
}

type Builder struct {
	client RangeFetcher
	store  *store.Store
	now    func() time.Time
}

func NewBuilder(client RangeFetcher, st *store.Store) *Builder {
	return &Builder{client: client, store: st, now: time.Now}
}

var reminderBodies = []string{
	"Take a moment to connect with Allah ﷻ.",
	"Time to pause and remember Allah.",
	"May your prayer bring peace to your heart 🤲.",
	"Let your soul breathe — it's time for salah.",
	"In the remembrance of Allah do hearts find rest. ﷻ",
	"A new prayer, a new beginning, a new reward.",
	"One prayer closer to Jannah, in shā' Allāh.",
	"Recharge your soul — it's prayer time.",
}

const fajrBody = "Prayer is better than sleep 🕊️"

// BuildSchedule fetches the next opts.Days days of timings and converts
// every enabled prayer into a Reminder, skipping instants already past.
// A trailer reminder follows the final prayer so the user knows to
// reopen the app for more.
func (b *Builder) BuildSchedule(ctx context.Context, loc models.LocationContext, opts Options) ([]Reminder, error) {
	days := opts.Days
	if days <= 0 {
		days = DefaultDays
	}
	zone := opts.Zone
	if zone == nil {
		zone = time.Local
	}

	now := b.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days-1)

	raw, err := b.fetchRangeCached(ctx, start, end, loc)
	if err != nil {
		return nil, err
	}

	records, err := aladhan.DecodeRange(raw)
	if err != nil {
		return nil, err
	}

	var reminders []Reminder
	bodyIndex := 0
	for _, rec := range records {
		for _, prayer := range models.Prayers {
			if opts.Disabled[prayer] {
				continue
			}

			at, err := rec.PrayerTime(prayer)
			if err != nil {
				log.Printf("notify: unparseable %s time on %s: %v", prayer, rec.Date.Gregorian.Date, err)
				continue
			}
			at = at.In(zone)
			if !at.After(now) {
				continue
			}

			body := fajrBody
			if prayer != models.Fajr {
				body = reminderBodies[bodyIndex%len(reminderBodies)]
				bodyIndex++
			}

			reminders = append(reminders, Reminder{
				Prayer: prayer,
				Title:  fmt.Sprintf("Time for %s", prayer),
				Body:   body,
				At:     at,
			})
		}
	}

	if len(reminders) > 0 {
		last := reminders[len(reminders)-1]
		reminders = append(reminders, Reminder{
			Title: "Reminders stopped",
			Body:  "Open the app to keep getting prayer alerts",
			At:    last.At.Add(5 * time.Minute),
		})
	}

	return reminders, nil
}

// Apply pushes a built schedule through the collaborator: authorization,
// clearing the previous window, then arming the new one.
func (b *Builder) Apply(ctx context.Context, scheduler Scheduler, reminders []Reminder) error {
	granted, err := scheduler.RequestAuthorization(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrNotAuthorized
	}

	if err := scheduler.ClearPending(ctx); err != nil {
		return err
	}
	return scheduler.Schedule(ctx, reminders)
}

// fetchRangeCached prefers the most recent cached response for this
// window over a fresh request; the window is used hourly and the data
// barely changes. A stale cached response still beats a failed fetch.
func (b *Builder) fetchRangeCached(ctx context.Context, start, end time.Time, loc models.LocationContext) ([]byte, error) {
	cached, err := b.store.GetRangeEntry(start, end, loc.City, loc.CountryCode)
	if err != nil {
		log.Printf("notify: range cache read: %v", err)
	}
	if cached != nil && b.now().Sub(cached.FetchedAt) < reuseWindow {
		return cached.Payload, nil
	}

	raw, err := b.client.FetchRange(ctx, start, end, loc.Latitude, loc.Longitude)
	if err != nil {
		if cached != nil {
			log.Printf("notify: range fetch failed, reusing cached response: %v", err)
			return cached.Payload, nil
		}
		return nil, err
	}

	if err := b.store.UpsertRangeEntry(start, end, loc.City, loc.CountryCode, raw); err != nil {
		log.Printf("notify: range cache write: %v", err)
	}
	return raw, nil
}
