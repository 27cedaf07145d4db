package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/config"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	zips := []domain.ZipCount{{ZipCode: "11207", Count: 2814}}

	msg, err := serializeToMessage(TableTopCollisionZips, zips, "run-1", now)
	require.NoError(t, err)

	assert.Equal(t, []byte("top_collision_zips"), msg.Key)
	assert.JSONEq(t, `[{"zip_code":"11207","count":2814}]`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_Unmarshalable(t *testing.T) {
	_, err := serializeToMessage("bad", make(chan int), "run-1", time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize bad")
}

func TestReportMessages(t *testing.T) {
	r := domain.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC),
		Casualties:  domain.Casualties{Injured: 3, Killed: 1},
		TopFactors:  []domain.FactorCount{{Factor: "Unsafe Speed", Count: 4}},
		CollisionStats: domain.TableStats{
			Read: 10, Kept: 8,
			Dropped: map[domain.DropReason]int{domain.ReasonMissingZip: 2},
		},
		CollisionPoints: []domain.Geo{{Lat: 40.7, Lon: -73.9}},
	}

	msgs, err := reportMessages(r)
	require.NoError(t, err)

	keys := make([]string, len(msgs))
	byKey := make(map[string][]byte, len(msgs))
	for i, m := range msgs {
		keys[i] = string(m.Key)
		byKey[string(m.Key)] = m.Value
	}
	assert.Equal(t, []string{
		TableTopCollisionZips, TableCollisionsByZip, TableByMonth, TableCasualties,
		TableLowestIncomes, TableTopZipIncomes, TableFactors, TableTopFactors, TableCleaning,
	}, keys)

	assert.JSONEq(t, `{"injured":3,"killed":1}`, string(byKey[TableCasualties]))
	assert.JSONEq(t, `[{"factor":"Unsafe Speed","count":4}]`, string(byKey[TableTopFactors]))
	assert.Equal(t, "null", string(byKey[TableFactors]))

	var cleaning cleaningSummary
	require.NoError(t, json.Unmarshal(byKey[TableCleaning], &cleaning))
	assert.Equal(t, 2, cleaning.Collisions.Dropped[domain.ReasonMissingZip])

	for _, m := range msgs {
		assert.NotContains(t, string(m.Value), "40.7", "heat map points are not published")
	}
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaReportTopic: "reports"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	assert.Equal(t, "kafka", w.Name())
	assert.Equal(t, "reports", w.writer.Topic)
}

func TestWriter_Load_CancelledContext(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaReportTopic: "reports"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Load(ctx, domain.Report{RunID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish report")
}
