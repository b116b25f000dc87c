package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/arkan-app/arkan/internal/aladhan"
	"github.com/arkan-app/arkan/internal/archive"
	"github.com/arkan-app/arkan/internal/geo"
	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/prayertimes"
	"github.com/arkan-app/arkan/internal/store"
)

type Globals struct {
	DB         string  `name:"db" env:"ARKAN_DB" default:"data/arkan.db" help:"Path to the SQLite archive database."`
	Latitude   float64 `env:"ARKAN_LATITUDE" help:"Latitude override; used together with --longitude to skip IP geolocation."`
	Longitude  float64 `env:"ARKAN_LONGITUDE" help:"Longitude override."`
	City       string  `env:"ARKAN_CITY" help:"City override for the archive key."`
	Country    string  `env:"ARKAN_COUNTRY" help:"Country code override for the archive key."`
	TwentyFour bool    `name:"24h" help:"Display times in 24-hour format."`
}

type CLI struct {
	Globals

	Today    TodayCmd    `cmd:"" help:"Show today's prayer times."`
	Get      GetCmd      `cmd:"" help:"Show prayer times for a specific date."`
	Next     NextCmd     `cmd:"" help:"Show the next upcoming prayer and countdown."`
	Hijri    HijriCmd    `cmd:"" help:"Show today's Hijri calendar date."`
	Schedule ScheduleCmd `cmd:"" help:"Build the rolling prayer-reminder schedule."`
	Archive  ArchiveCmd  `cmd:"" help:"Inspect or prune the offline archive."`
	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API with background refresh."`
}

// app carries the long-lived handles every command shares: one store
// opened at startup and passed by reference, never a global singleton.
type app struct {
	globals  *Globals
	store    *store.Store
	client   *aladhan.Client
	svc      *prayertimes.Service
	resolver *geo.Resolver
}

// location builds the LocationContext for this invocation: explicit
// flags win, otherwise IP geolocation with persisted-location fallback.
func (a *app) location(ctx context.Context) models.LocationContext {
	g := a.globals
	if g.City != "" && g.Country != "" {
		loc := models.LocationContext{
			Latitude:    g.Latitude,
			Longitude:   g.Longitude,
			City:        g.City,
			CountryCode: g.Country,
		}
		if err := a.store.SaveLocation(loc); err != nil {
			log.Printf("arkan: persist location: %v", err)
		}
		return loc
	}
	return a.resolver.Resolve(ctx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("arkan"),
		kong.Description("Islamic prayer times with an offline archive."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	st, err := store.Open(cli.DB)
	if err != nil {
		log.Fatalf("open archive store: %v", err)
	}
	defer st.Close()

	client := aladhan.NewClient()
	svc := prayertimes.New(archive.New(st), st, client)

	a := &app{
		globals:  &cli.Globals,
		store:    st,
		client:   client,
		svc:      svc,
		resolver: geo.NewResolver(st),
	}

	if err := kctx.Run(a); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
