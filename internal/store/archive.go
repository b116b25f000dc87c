package store

import (
	"database/sql"
	"time"
)

// dayFormat keys date_archive rows; lexicographic order matches
// chronological order so pruning can compare strings.
const dayFormat = "2006-01-02"

// DateEntry is one archived single-day response: the raw provider bytes
// for one calendar day at one geocoded location.
type DateEntry struct {
	ID          int64
	Date        time.Time
	City        string
	CountryCode string
	Payload     []byte
	FetchedAt   time.Time
}

// YearEntry is one archived full-year response, partitioned by month
// inside the payload.
type YearEntry struct {
	ID          int64
	Year        int
	City        string
	CountryCode string
	Payload     []byte
	FetchedAt   time.Time
}

// RangeEntry caches a date-range response for the rolling notification
// window, so near-identical requests within a few hours reuse it.
type RangeEntry struct {
	ID          int64
	Start       time.Time
	End         time.Time
	City        string
	CountryCode string
	Payload     []byte
	FetchedAt   time.Time
}

// UpsertDateEntry stores a single-day response, replacing any existing
// entry for the same (day, city, countryCode) key. The date is truncated
// to day granularity.
func (s *Store) UpsertDateEntry(date time.Time, city, countryCode string, payload []byte) error {
	compressed, err := compress(payload)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO date_archive (date, city, country_code, payload_compressed, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, city, country_code) DO UPDATE SET
			payload_compressed = excluded.payload_compressed,
			fetched_at = excluded.fetched_at
	`, date.Format(dayFormat), city, countryCode, compressed, time.Now().UTC())
	return err
}

// GetDateEntry returns the archived entry for (day, city, countryCode),
// or nil when none exists. Time-of-day is ignored.
func (s *Store) GetDateEntry(date time.Time, city, countryCode string) (*DateEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, date, payload_compressed, fetched_at
		FROM date_archive
		WHERE date = ? AND city = ? AND country_code = ?
	`, date.Format(dayFormat), city, countryCode)

	var e DateEntry
	var day string
	var compressed []byte
	err := row.Scan(&e.ID, &day, &compressed, &e.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.Date, _ = time.Parse(dayFormat, day)
	e.City = city
	e.CountryCode = countryCode
	if e.Payload, err = decompress(compressed); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertYearEntry stores a full-year response, replacing any existing
// entry for the same (year, city, countryCode) key.
func (s *Store) UpsertYearEntry(year int, city, countryCode string, payload []byte) error {
	compressed, err := compress(payload)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO year_archive (year, city, country_code, payload_compressed, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(year, city, country_code) DO UPDATE SET
			payload_compressed = excluded.payload_compressed,
			fetched_at = excluded.fetched_at
	`, year, city, countryCode, compressed, time.Now().UTC())
	return err
}

// GetYearEntry returns the yearly backup for (year, city, countryCode),
// or nil when none exists.
func (s *Store) GetYearEntry(year int, city, countryCode string) (*YearEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, payload_compressed, fetched_at
		FROM year_archive
		WHERE year = ? AND city = ? AND country_code = ?
	`, year, city, countryCode)

	var e YearEntry
	var compressed []byte
	err := row.Scan(&e.ID, &compressed, &e.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.Year = year
	e.City = city
	e.CountryCode = countryCode
	if e.Payload, err = decompress(compressed); err != nil {
		return nil, err
	}
	return &e, nil
}

// HasYearEntry is the decode-free existence check used before deciding
// to download a yearly backup.
func (s *Store) HasYearEntry(year int, city, countryCode string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM year_archive
		WHERE year = ? AND city = ? AND country_code = ?
	`, year, city, countryCode).Scan(&count)
	return count > 0, err
}

// PruneDateEntriesBefore deletes every single-day entry whose day is
// strictly before the given day. Returns the number of deleted rows.
func (s *Store) PruneDateEntriesBefore(day time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM date_archive WHERE date < ?`, day.Format(dayFormat))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PruneYearEntriesBefore deletes every yearly entry whose year is
// strictly before the given year. Returns the number of deleted rows.
func (s *Store) PruneYearEntriesBefore(year int) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM year_archive WHERE year < ?`, year)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpsertRangeEntry caches a date-range response for reuse.
func (s *Store) UpsertRangeEntry(start, end time.Time, city, countryCode string, payload []byte) error {
	compressed, err := compress(payload)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO range_cache (start_date, end_date, city, country_code, payload_compressed, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(start_date, end_date, city, country_code) DO UPDATE SET
			payload_compressed = excluded.payload_compressed,
			fetched_at = excluded.fetched_at
	`, start.Format(dayFormat), end.Format(dayFormat), city, countryCode, compressed, time.Now().UTC())
	return err
}

// GetRangeEntry returns the cached response for the exact window, or nil.
func (s *Store) GetRangeEntry(start, end time.Time, city, countryCode string) (*RangeEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, payload_compressed, fetched_at
		FROM range_cache
		WHERE start_date = ? AND end_date = ? AND city = ? AND country_code = ?
	`, start.Format(dayFormat), end.Format(dayFormat), city, countryCode)

	var e RangeEntry
	var compressed []byte
	err := row.Scan(&e.ID, &compressed, &e.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.Start = start
	e.End = end
	e.City = city
	e.CountryCode = countryCode
	if e.Payload, err = decompress(compressed); err != nil {
		return nil, err
	}
	return &e, nil
}

// Stats summarizes archive occupancy for status displays.
type Stats struct {
	DateEntries  int
	YearEntries  int
	RangeEntries int
}

func (s *Store) ArchiveStats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM date_archive`).Scan(&st.DateEntries); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM year_archive`).Scan(&st.YearEntries); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM range_cache`).Scan(&st.RangeEntries); err != nil {
		return st, err
	}
	return st, nil
}

// PruneRangeEntriesBefore deletes cached range responses whose window
// ended strictly before the given day.
func (s *Store) PruneRangeEntriesBefore(day time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM range_cache WHERE end_date < ?`, day.Format(dayFormat))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
