//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_ResolveZip_LowerManhattan(t *testing.T) {
	c := smokeClient(t)

	// City Hall Park.
	zip, err := c.ResolveZip(context.Background(), 40.7128, -74.0060)
	require.NoError(t, err)
	assert.Regexp(t, `^100\d\d$`, zip)
}

func TestSmoke_ResolveZip_OpenWater(t *testing.T) {
	c := smokeClient(t)

	// Mid-Atlantic has no postcode; the client must not error.
	_, err := c.ResolveZip(context.Background(), 38.0, -50.0)
	require.NoError(t, err)
}

func TestSmoke_CachedResolver(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedResolver(c, 10, observability.NewMetricsForTesting())

	z1, err := cached.ResolveZip(context.Background(), 40.6959, -73.9900)
	require.NoError(t, err)
	require.NotEmpty(t, z1)

	z2, err := cached.ResolveZip(context.Background(), 40.6959, -73.9900)
	require.NoError(t, err)
	assert.Equal(t, z1, z2)
}
