// Package aladhan talks to the AlAdhan prayer-times API and decodes its
// response envelopes into domain records.
package aladhan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/arkan-app/arkan/internal/metrics"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// dateFormat is the provider's path date format, dd-MM-yyyy.
const dateFormat = "02-01-2006"

var (
	// ErrInvalidURL means request construction failed. With validated
	// inputs this is unreachable and signals a programming error.
	ErrInvalidURL = errors.New("aladhan: invalid request URL")

	// ErrBadServerResponse means the provider answered outside 2xx.
	ErrBadServerResponse = errors.New("aladhan: bad server response")
)

// Client issues GET requests against the AlAdhan API and returns raw
// response bytes. It performs no retries; fallback policy lives in the
// orchestrator.
type Client struct {
	httpClient *http.Client

	// BaseURL is exported so tests can point the client at an
	// httptest server.
	BaseURL string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    defaultBaseURL,
	}
}

// FetchDay downloads the single-day timings envelope for a coordinate.
func (c *Client) FetchDay(ctx context.Context, date time.Time, latitude, longitude float64) ([]byte, error) {
	path := "/timings/" + date.Format(dateFormat)
	return c.get(ctx, "timings", path, latitude, longitude)
}

// FetchYear downloads the full-calendar-year envelope, partitioned by month.
func (c *Client) FetchYear(ctx context.Context, year int, latitude, longitude float64) ([]byte, error) {
	path := "/calendar/" + strconv.Itoa(year)
	return c.get(ctx, "calendar", path, latitude, longitude)
}

// FetchRange downloads the inclusive date-range envelope used for
// multi-day notification scheduling.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time, latitude, longitude float64) ([]byte, error) {
	path := "/calendar/from/" + start.Format(dateFormat) + "/to/" + end.Format(dateFormat)
	return c.get(ctx, "calendar_range", path, latitude, longitude)
}

func (c *Client) get(ctx context.Context, endpoint, path string, latitude, longitude float64) ([]byte, error) {
	reqURL, err := c.buildURL(path, latitude, longitude)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("aladhan: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.ProviderCallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrBadServerResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("aladhan: read %s body: %w", endpoint, err)
	}
	return body, nil
}

// buildURL attaches the coordinate and the fixed calculation-method
// parameters every request carries, so all timings in the system are
// computed with the same astronomical convention.
func (c *Client) buildURL(path string, latitude, longitude float64) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("shafaq", "general")
	q.Set("calendarMethod", "UAQ")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
