package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNominatimServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("q") {
		case "Arnulf-Klett-Platz 2, 70173 Stuttgart":
			_, _ = w.Write([]byte(`[{"lat": "48.7840", "lon": "9.1817", "display_name": "Stuttgart Hauptbahnhof"}]`))
		case "broken":
			_, _ = w.Write([]byte(`[{"lat": "north", "lon": "9.1"}]`))
		case "overloaded":
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNominatimClient_Geocode(t *testing.T) {
	var calls int32
	srv := newNominatimServer(t, &calls)
	c := NewNominatimClient(srv.URL+"/", "test-agent", 1000, zap.NewNop())
	ctx := context.Background()

	got, err := c.Geocode(ctx, "Arnulf-Klett-Platz 2, 70173 Stuttgart")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 48.7840, Lon: 9.1817}, got)

	// Cached, case-insensitively.
	got, err = c.Geocode(ctx, "arnulf-klett-platz 2, 70173 stuttgart")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 48.7840, Lon: 9.1817}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNominatimClient_Errors(t *testing.T) {
	var calls int32
	srv := newNominatimServer(t, &calls)
	c := NewNominatimClient(srv.URL, "test-agent", 1000, zap.NewNop())
	ctx := context.Background()

	_, err := c.Geocode(ctx, "Atlantis")
	assert.True(t, errors.Is(err, ErrNoMatch))

	_, err = c.Geocode(ctx, "   ")
	assert.True(t, errors.Is(err, ErrNoMatch))

	_, err = c.Geocode(ctx, "broken")
	assert.Error(t, err)

	_, err = c.Geocode(ctx, "overloaded")
	assert.ErrorContains(t, err, "429")
}

func TestNominatimClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := NewNominatimClient(srv.URL, "test-agent", 1000, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Geocode(ctx, "Königstraße 1")
	assert.Error(t, err)
}

func TestNewNominatimClient_Defaults(t *testing.T) {
	c := NewNominatimClient("", "", 0, zap.NewNop())
	assert.Equal(t, DefaultNominatimURL, c.baseURL)
	assert.Equal(t, DefaultUserAgent, c.userAgent)
}
