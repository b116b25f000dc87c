package aladhan

import (
	"encoding/json"
	"fmt"

	"github.com/arkan-app/arkan/internal/models"
)

// DecodeError reports a malformed response envelope, naming which of the
// three shapes failed. Callers treat it the same as "no data available".
type DecodeError struct {
	Shape string // "day", "year" or "range"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("aladhan: decode %s envelope: %v", e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// The provider wraps every payload in {code, status, data}; only the
// shape of data differs between the three query kinds.
type dayEnvelope struct {
	Code int              `json:"code"`
	Data models.DayRecord `json:"data"`
}

type yearEnvelope struct {
	Code int                           `json:"code"`
	Data map[string][]models.DayRecord `json:"data"`
}

type rangeEnvelope struct {
	Code int                `json:"code"`
	Data []models.DayRecord `json:"data"`
}

// DecodeDay decodes a single-day envelope into one DayRecord.
func DecodeDay(raw []byte) (models.DayRecord, error) {
	var env dayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.DayRecord{}, &DecodeError{Shape: "day", Err: err}
	}
	if err := validateRecord(env.Data); err != nil {
		return models.DayRecord{}, &DecodeError{Shape: "day", Err: err}
	}
	return env.Data, nil
}

// DecodeYear decodes a full-year envelope into a map from month number
// ("1".."12") to that month's days in chronological order. Day-of-month
// d sits at index d-1; IndexYear applies that convention for callers.
func DecodeYear(raw []byte) (map[string][]models.DayRecord, error) {
	var env yearEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Shape: "year", Err: err}
	}
	if len(env.Data) == 0 {
		return nil, &DecodeError{Shape: "year", Err: fmt.Errorf("empty month map")}
	}
	for month, days := range env.Data {
		if len(days) == 0 {
			return nil, &DecodeError{Shape: "year", Err: fmt.Errorf("month %s has no days", month)}
		}
	}
	return env.Data, nil
}

// IndexYear picks the record for (month, dayOfMonth) out of a decoded
// year map. ok is false when the month or day is absent, which a
// complete yearly response never exhibits but is not assumed.
func IndexYear(byMonth map[string][]models.DayRecord, month, dayOfMonth int) (models.DayRecord, bool) {
	days, found := byMonth[fmt.Sprintf("%d", month)]
	if !found {
		return models.DayRecord{}, false
	}
	if dayOfMonth < 1 || dayOfMonth > len(days) {
		return models.DayRecord{}, false
	}
	return days[dayOfMonth-1], true
}

// DecodeRange decodes a date-range envelope into one record per day, in
// chronological order.
func DecodeRange(raw []byte) ([]models.DayRecord, error) {
	var env rangeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Shape: "range", Err: err}
	}
	if len(env.Data) == 0 {
		return nil, &DecodeError{Shape: "range", Err: fmt.Errorf("empty day list")}
	}
	for _, rec := range env.Data {
		if err := validateRecord(rec); err != nil {
			return nil, &DecodeError{Shape: "range", Err: err}
		}
	}
	return env.Data, nil
}

func validateRecord(rec models.DayRecord) error {
	if rec.Date.Gregorian.Date == "" {
		return fmt.Errorf("missing gregorian date")
	}
	if rec.Timings.Fajr == "" || rec.Timings.Isha == "" {
		return fmt.Errorf("missing timings for %s", rec.Date.Gregorian.Date)
	}
	return nil
}
