// Package geo is the location collaborator: it resolves the device's
// coordinates and geocoded city/country from its public IP and persists
// the result as the last-known location.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/arkan-app/arkan/internal/models"
	"github.com/arkan-app/arkan/internal/store"
)

const defaultAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,countryCode"

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	City        string  `json:"city"`
	CountryCode string  `json:"countryCode"`
}

type Resolver struct {
	httpClient *http.Client
	store      *store.Store

	// APIURL is exported so tests can point the resolver at an
	// httptest server.
	APIURL string
}

func NewResolver(st *store.Store) *Resolver {
	return &Resolver{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		store:      st,
		APIURL:     defaultAPIURL,
	}
}

// Detect queries the geolocation service once. No caching, no fallback.
func (r *Resolver) Detect(ctx context.Context) (models.LocationContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.APIURL, nil)
	if err != nil {
		return models.LocationContext{}, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.LocationContext{}, fmt.Errorf("geo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.LocationContext{}, fmt.Errorf("geo: status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.LocationContext{}, fmt.Errorf("geo: decode response: %w", err)
	}
	if result.Status != "success" {
		return models.LocationContext{}, fmt.Errorf("geo: lookup failed: %s", result.Message)
	}

	return models.LocationContext{
		Latitude:    result.Lat,
		Longitude:   result.Lon,
		City:        result.City,
		CountryCode: result.CountryCode,
	}, nil
}

// Resolve detects the current location and persists it. When detection
// fails it falls back to the last persisted location; when none exists
// the zero LocationContext is returned and its (0,0) coordinates are
// submitted to the provider as a literal query.
func (r *Resolver) Resolve(ctx context.Context) models.LocationContext {
	loc, err := r.Detect(ctx)
	if err == nil {
		if saveErr := r.store.SaveLocation(loc); saveErr != nil {
			log.Printf("geo: persist location: %v", saveErr)
		}
		return loc
	}
	log.Printf("geo: detection failed, using last known location: %v", err)

	last, ok, err := r.store.LastKnownLocation()
	if err != nil {
		log.Printf("geo: read last known location: %v", err)
	}
	if !ok {
		log.Printf("geo: no last known location, proceeding with zero coordinates")
	}
	return last
}
