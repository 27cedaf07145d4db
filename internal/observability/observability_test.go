package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := newLogger(&buf, "debug", "json")
	logger.Debug("stage finished", "stage", "extract")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stage finished", line["msg"])
	assert.Equal(t, "extract", line["stage"])
}

func TestNewLogger_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := newLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestMetricsForTesting_AreUsable(t *testing.T) {
	m := NewMetricsForTesting()
	m.RowsRead.WithLabelValues("collisions").Add(3)
	m.RowsDropped.WithLabelValues("collisions", "missing_zip").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsRead.WithLabelValues("collisions")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RowsDropped.WithLabelValues("collisions", "missing_zip")), 0.0001)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := NewMetricsForTesting()
	reg.MustRegister(m.LastRunSuccess)
	m.LastRunSuccess.Set(1)

	require.NoError(t, Push(context.Background(), srv.URL, reg))

	assert.Equal(t, "/metrics/job/"+PushJob, gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := NewMetricsForTesting()
	reg.MustRegister(m.LastRunSuccess)

	err := Push(context.Background(), srv.URL, reg)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "push metrics"))
}
