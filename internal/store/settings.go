package store

import (
	"database/sql"
	"encoding/json"

	"github.com/arkan-app/arkan/internal/models"
)

const locationKey = "location"

// SaveLocation persists the last successfully resolved location. The
// orchestrator falls back to it when live location resolution fails.
func (s *Store) SaveLocation(loc models.LocationContext) error {
	value, err := json.Marshal(loc)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, locationKey, string(value))
	return err
}

// LastKnownLocation returns the persisted location, if any. When none
// was ever saved, ok is false and the zero LocationContext is returned;
// callers submit those zero coordinates to the provider as-is.
func (s *Store) LastKnownLocation() (models.LocationContext, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, locationKey).Scan(&value)
	if err == sql.ErrNoRows {
		return models.LocationContext{}, false, nil
	}
	if err != nil {
		return models.LocationContext{}, false, err
	}

	var loc models.LocationContext
	if err := json.Unmarshal([]byte(value), &loc); err != nil {
		return models.LocationContext{}, false, err
	}
	return loc, true, nil
}
