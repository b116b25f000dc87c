package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arkan-app/arkan/internal/api"
	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/notify"
	"github.com/arkan-app/arkan/internal/prayertimes"
	"github.com/arkan-app/arkan/internal/refresh"
)

type TodayCmd struct{}

func (c *TodayCmd) Run(a *app, ctx context.Context) error {
	return showDay(a, ctx, time.Now())
}

type GetCmd struct {
	Date string `arg:"" help:"Date as dd-MM-yyyy."`
}

func (c *GetCmd) Run(a *app, ctx context.Context) error {
	date, err := time.Parse("02-01-2006", c.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected dd-MM-yyyy: %w", c.Date, err)
	}
	return showDay(a, ctx, date)
}

func showDay(a *app, ctx context.Context, date time.Time) error {
	loc := a.location(ctx)

	rec, err := a.svc.GetOrDownload(ctx, date, loc)
	if errors.Is(err, prayertimes.ErrDataNotFound) {
		// The app's behavior when the whole ladder fails: show the
		// sentinel record rather than an error state.
		fmt.Println("No prayer times available offline; showing placeholder times.")
		rec = models.Mock()
	} else if err != nil {
		return err
	}

	fmt.Printf("%s  ·  %s\n", rec.Date.Gregorian.Date, rec.FormattedHijriDate())
	if rec.Meta.Method.Name != "" {
		fmt.Printf("Method: %s\n", rec.Meta.Method.Name)
	}
	fmt.Println()
	fmt.Printf("  %-8s %s\n", "Sunrise", models.FormatClock(rec.Timings.Sunrise, a.globals.TwentyFour))
	for _, p := range models.Prayers {
		fmt.Printf("  %-8s %s\n", p, rec.Timings.FormattedTime(p, a.globals.TwentyFour))
	}
	return nil
}

type NextCmd struct{}

func (c *NextCmd) Run(a *app, ctx context.Context) error {
	loc := a.location(ctx)
	now := time.Now().UTC()

	rec, err := a.svc.GetOrDownload(ctx, now, loc)
	if err != nil {
		return err
	}

	prayer, at, ok := rec.NextPrayer(now)
	if !ok {
		tomorrow, err := a.svc.GetOrDownload(ctx, now.AddDate(0, 0, 1), loc)
		if err != nil {
			return err
		}
		fajrAt, err := tomorrow.PrayerTime(models.Fajr)
		if err != nil {
			return err
		}
		prayer, at = models.Fajr, fajrAt
	}

	until := at.Sub(now).Truncate(time.Minute)
	fmt.Printf("%s (%s) at %s — in %s\n",
		prayer, prayer.Abbreviated(),
		at.In(time.Local).Format("15:04"),
		until)
	return nil
}

type HijriCmd struct{}

func (c *HijriCmd) Run(a *app, ctx context.Context) error {
	loc := a.location(ctx)

	rec, err := a.svc.GetOrDownload(ctx, time.Now(), loc)
	if errors.Is(err, prayertimes.ErrDataNotFound) {
		rec = models.Mock()
	} else if err != nil {
		return err
	}

	h := rec.Date.Hijri
	fmt.Printf("%s — %s\n", h.Weekday.En, rec.FormattedHijriDate())
	return nil
}

type ScheduleCmd struct {
	Days    int      `default:"12" help:"Length of the rolling reminder window in days."`
	Disable []string `help:"Prayers to skip (fajr, dhuhr, asr, maghrib, isha)."`
}

func (c *ScheduleCmd) Run(a *app, ctx context.Context) error {
	disabled := make(map[models.Prayer]bool)
	for _, name := range c.Disable {
		switch strings.ToLower(name) {
		case "fajr":
			disabled[models.Fajr] = true
		case "dhuhr":
			disabled[models.Dhuhr] = true
		case "asr":
			disabled[models.Asr] = true
		case "maghrib":
			disabled[models.Maghrib] = true
		case "isha":
			disabled[models.Isha] = true
		default:
			return fmt.Errorf("unknown prayer %q", name)
		}
	}

	loc := a.location(ctx)
	builder := notify.NewBuilder(a.client, a.store)

	reminders, err := builder.BuildSchedule(ctx, loc, notify.Options{
		Days:     c.Days,
		Disabled: disabled,
	})
	if err != nil {
		return err
	}

	for _, r := range reminders {
		fmt.Printf("%s  %-20s %s\n", r.At.Format("Mon 02 Jan 15:04"), r.Title, r.Body)
	}
	fmt.Printf("\n%d reminders over the next %d days\n", len(reminders), c.Days)
	return nil
}

type ArchiveCmd struct {
	Status ArchiveStatusCmd `cmd:"" help:"Show archive occupancy."`
	Prune  ArchivePruneCmd  `cmd:"" help:"Remove entries for past days and years."`
}

type ArchiveStatusCmd struct{}

func (c *ArchiveStatusCmd) Run(a *app) error {
	stats, err := a.store.ArchiveStats()
	if err != nil {
		return err
	}
	fmt.Printf("day entries:   %d\n", stats.DateEntries)
	fmt.Printf("year entries:  %d\n", stats.YearEntries)
	fmt.Printf("range entries: %d\n", stats.RangeEntries)
	return nil
}

type ArchivePruneCmd struct{}

func (c *ArchivePruneCmd) Run(a *app) error {
	return a.svc.Prune()
}

type ServeCmd struct {
	Listen string `default:":8080" env:"ARKAN_LISTEN" help:"HTTP listen address."`
	NoPoll bool   `help:"Disable the background refresh loop."`
}

func (c *ServeCmd) Run(a *app, ctx context.Context) error {
	server := api.NewServer(a.svc, a.resolver, c.Listen)

	if !c.NoPoll {
		go refresh.New(a.svc, a.resolver).Run(ctx)
	}

	fmt.Printf("listening on %s\n", c.Listen)
	return server.Run(ctx)
}
