package models

import (
	"strings"
	"time"
)

// Prayer identifies one of the five daily prayers.
type Prayer string

const (
	Fajr    Prayer = "Fajr"
	Dhuhr   Prayer = "Dhuhr"
	Asr     Prayer = "Asr"
	Maghrib Prayer = "Maghrib"
	Isha    Prayer = "Isha"
)

// Prayers lists the five daily prayers in chronological order.
var Prayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// Abbreviated returns the three-letter label used in compact displays.
func (p Prayer) Abbreviated() string {
	switch p {
	case Fajr:
		return "FJR"
	case Dhuhr:
		return "DHR"
	case Asr:
		return "ASR"
	case Maghrib:
		return "MGB"
	case Isha:
		return "ISH"
	}
	return string(p)
}

// Timings holds the provider's wall-clock time strings for one day.
// The provider formats them as "HH:mm (+03)"; the timezone suffix is
// stripped on display, never on storage.
type Timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Time returns the raw provider string for a prayer.
func (t Timings) Time(p Prayer) string {
	switch p {
	case Fajr:
		return t.Fajr
	case Dhuhr:
		return t.Dhuhr
	case Asr:
		return t.Asr
	case Maghrib:
		return t.Maghrib
	case Isha:
		return t.Isha
	}
	return ""
}

// FormattedTime strips the timezone suffix and renders the prayer time in
// 12- or 24-hour display format. Unparseable values are returned as-is
// with the suffix removed.
func (t Timings) FormattedTime(p Prayer, use24Hour bool) string {
	return FormatClock(t.Time(p), use24Hour)
}

// FormatClock normalizes a provider time string like "19:18 (+03)".
func FormatClock(raw string, use24Hour bool) string {
	clock, _, _ := strings.Cut(raw, " ")

	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	if use24Hour {
		return parsed.Format("15:04")
	}
	return parsed.Format("3:04 PM")
}

// GregorianDate is the provider's Gregorian date, "dd-MM-yyyy".
type GregorianDate struct {
	Date   string `json:"date"`
	Format string `json:"format"`
}

// Weekday carries localized weekday names.
type Weekday struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// HijriMonth carries the Hijri month number and localized names.
type HijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
	Ar     string `json:"ar"`
}

// HijriDate is the lunar-calendar date paired with the Gregorian one.
type HijriDate struct {
	Date    string     `json:"date"`
	Format  string     `json:"format"`
	Day     string     `json:"day"`
	Weekday Weekday    `json:"weekday"`
	Month   HijriMonth `json:"month"`
	Year    string     `json:"year"`
}

// DateInfo pairs the Gregorian and Hijri representations of one calendar day.
type DateInfo struct {
	Gregorian GregorianDate `json:"gregorian"`
	Hijri     HijriDate     `json:"hijri"`
}

// Method names the astronomical calculation method, for display only.
type Method struct {
	Name string `json:"name"`
}

// Meta is the computation metadata attached to every provider response.
type Meta struct {
	Method Method `json:"method"`
}

// DayRecord is the atomic unit: the prayer timings, date info and
// computation metadata for exactly one calendar day at one location.
type DayRecord struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Equal reports whether two records describe the same calendar day.
// Location is deliberately not part of the comparison.
func (r DayRecord) Equal(other DayRecord) bool {
	return r.Date.Gregorian.Date == other.Date.Gregorian.Date
}

// FormattedHijriDate renders the Hijri date like "18, Shawwāl 1446".
func (r DayRecord) FormattedHijriDate() string {
	h := r.Date.Hijri
	return h.Day + ", " + h.Month.En + " " + h.Year
}

// PrayerTime resolves a prayer's absolute instant. The provider returns
// all timings in UTC regardless of query location, so the Gregorian date
// string and the clock string are combined in UTC; callers convert to
// the display timezone afterwards.
func (r DayRecord) PrayerTime(p Prayer) (time.Time, error) {
	clock, _, _ := strings.Cut(r.Timings.Time(p), " ")
	return time.Parse("02-01-2006 15:04", r.Date.Gregorian.Date+" "+clock)
}

// NextPrayer returns the first prayer of this day strictly after now, in
// chronological order. ok is false when every prayer has passed; callers
// roll over to the next day's Fajr.
func (r DayRecord) NextPrayer(now time.Time) (Prayer, time.Time, bool) {
	for _, p := range Prayers {
		at, err := r.PrayerTime(p)
		if err != nil {
			continue
		}
		if at.After(now) {
			return p, at, true
		}
	}
	return "", time.Time{}, false
}

// LocationContext is the location identity threaded explicitly through
// the orchestrator: coordinates drive network queries, the geocoded
// city/country pair keys the archive.
type LocationContext struct {
	Latitude    float64
	Longitude   float64
	City        string
	CountryCode string
}

// Mock is the sentinel record presentation layers substitute when the
// whole fallback chain comes up empty.
func Mock() DayRecord {
	return DayRecord{
		Timings: Timings{
			Fajr:    "04:30 (+03)",
			Sunrise: "05:55 (+03)",
			Dhuhr:   "12:20 (+03)",
			Asr:     "15:45 (+03)",
			Maghrib: "18:40 (+03)",
			Isha:    "20:10 (+03)",
		},
		Date: DateInfo{
			Gregorian: GregorianDate{Date: "16-04-2025", Format: "DD-MM-YYYY"},
			Hijri: HijriDate{
				Date:    "18-10-1446",
				Format:  "DD-MM-YYYY",
				Day:     "18",
				Weekday: Weekday{En: "Al Arba'a", Ar: "الاربعاء"},
				Month:   HijriMonth{Number: 10, En: "Shawwāl", Ar: "شَوّال"},
				Year:    "1446",
			},
		},
		Meta: Meta{Method: Method{Name: "Umm Al-Qura University, Makkah"}},
	}
}
