// Package api exposes the resolved prayer times over HTTP for
// widget-style consumers, plus health and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arkan-app/arkan/internal/geo"
	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/prayertimes"
)

type Server struct {
	svc      *prayertimes.Service
	resolver *geo.Resolver
	addr     string
}

func NewServer(svc *prayertimes.Service, resolver *geo.Resolver, addr string) *Server {
	return &Server{svc: svc, resolver: resolver, addr: addr}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/timings", s.handleTimings)
	mux.HandleFunc("/api/hijri", s.handleHijri)
	mux.HandleFunc("/api/next", s.handleNext)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type timingsResponse struct {
	Date    string            `json:"date"`
	Hijri   string            `json:"hijri"`
	Method  string            `json:"method"`
	Timings map[string]string `json:"timings"`
	Sunrise string            `json:"sunrise"`
	Mock    bool              `json:"mock,omitempty"`
}

func (s *Server) handleTimings(w http.ResponseWriter, r *http.Request) {
	use24Hour := r.URL.Query().Get("format") == "24h"

	rec, mock := s.resolveToday(r.Context())

	resp := timingsResponse{
		Date:    rec.Date.Gregorian.Date,
		Hijri:   rec.FormattedHijriDate(),
		Method:  rec.Meta.Method.Name,
		Timings: make(map[string]string, len(models.Prayers)),
		Sunrise: models.FormatClock(rec.Timings.Sunrise, use24Hour),
		Mock:    mock,
	}
	for _, p := range models.Prayers {
		resp.Timings[string(p)] = rec.Timings.FormattedTime(p, use24Hour)
	}

	writeJSON(w, resp)
}

type hijriResponse struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	Weekday   string `json:"weekday"`
	Month     string `json:"month"`
	MonthAr   string `json:"month_ar"`
	Year      string `json:"year"`
	Formatted string `json:"formatted"`
	Mock      bool   `json:"mock,omitempty"`
}

func (s *Server) handleHijri(w http.ResponseWriter, r *http.Request) {
	rec, mock := s.resolveToday(r.Context())
	h := rec.Date.Hijri

	writeJSON(w, hijriResponse{
		Date:      h.Date,
		Day:       h.Day,
		Weekday:   h.Weekday.En,
		Month:     h.Month.En,
		MonthAr:   h.Month.Ar,
		Year:      h.Year,
		Formatted: rec.FormattedHijriDate(),
		Mock:      mock,
	})
}

type nextResponse struct {
	Prayer      string `json:"prayer"`
	Abbreviated string `json:"abbreviated"`
	At          string `json:"at"`
	In          string `json:"in"`
	Mock        bool   `json:"mock,omitempty"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	rec, mock := s.resolveToday(r.Context())

	now := time.Now().UTC()
	prayer, at, ok := rec.NextPrayer(now)
	if !ok {
		// Every prayer today has passed; tomorrow's Fajr is next.
		loc := s.resolver.Resolve(r.Context())
		tomorrow, err := s.svc.GetOrDownload(r.Context(), now.AddDate(0, 0, 1), loc)
		if err == nil {
			if fajrAt, err := tomorrow.PrayerTime(models.Fajr); err == nil {
				prayer, at, ok = models.Fajr, fajrAt, true
			}
		}
	}
	if !ok {
		http.Error(w, "no upcoming prayer available", http.StatusNotFound)
		return
	}

	writeJSON(w, nextResponse{
		Prayer:      string(prayer),
		Abbreviated: prayer.Abbreviated(),
		At:          at.In(time.Local).Format(time.RFC3339),
		In:          at.Sub(now).Truncate(time.Second).String(),
		Mock:        mock,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// resolveToday runs the full orchestration for today and substitutes the
// sentinel mock record when every fallback is exhausted, mirroring the
// presentation-layer behavior the widgets expect.
func (s *Server) resolveToday(ctx context.Context) (models.DayRecord, bool) {
	loc := s.resolver.Resolve(ctx)

	rec, err := s.svc.GetOrDownload(ctx, time.Now(), loc)
	if err != nil {
		if !errors.Is(err, prayertimes.ErrDataNotFound) {
			log.Printf("api: resolve today: %v", err)
		}
		return models.Mock(), true
	}
	return rec, false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
