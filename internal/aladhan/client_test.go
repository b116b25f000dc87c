package aladhan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient()
	client.BaseURL = srv.URL
	return client, srv
}

func TestFetchDay_RequestShape(t *testing.T) {
	var captured *http.Request
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Write([]byte(`{"code": 200}`))
	})
	defer srv.Close()

	date := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	body, err := client.FetchDay(context.Background(), date, 21.42, 39.83)
	require.NoError(t, err)
	assert.Equal(t, `{"code": 200}`, string(body))

	require.NotNil(t, captured)
	assert.Equal(t, "/timings/16-04-2025", captured.URL.Path)
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))

	q := captured.URL.Query()
	assert.Equal(t, "21.42", q.Get("latitude"))
	assert.Equal(t, "39.83", q.Get("longitude"))
	assert.Equal(t, "general", q.Get("shafaq"))
	assert.Equal(t, "UAQ", q.Get("calendarMethod"))
}

func TestFetchYear_Path(t *testing.T) {
	var path string
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	_, err := client.FetchYear(context.Background(), 2025, 21.42, 39.83)
	require.NoError(t, err)
	assert.Equal(t, "/calendar/2025", path)
}

func TestFetchRange_Path(t *testing.T) {
	var path string
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	start := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 11)
	_, err := client.FetchRange(context.Background(), start, end, 21.42, 39.83)
	require.NoError(t, err)
	assert.Equal(t, "/calendar/from/16-04-2025/to/27-04-2025", path)
}

func TestGet_BadStatus(t *testing.T) {
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.FetchDay(context.Background(), time.Now(), 0, 0)
	require.ErrorIs(t, err, ErrBadServerResponse)
}

func TestGet_RedirectStatusRejected(t *testing.T) {
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})
	defer srv.Close()

	_, err := client.FetchDay(context.Background(), time.Now(), 0, 0)
	require.ErrorIs(t, err, ErrBadServerResponse)
}

func TestGet_ContextCancelled(t *testing.T) {
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchDay(ctx, time.Now(), 0, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadServerResponse)
}
