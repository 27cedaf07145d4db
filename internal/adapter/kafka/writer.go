package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/config"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Table keys used as message keys.
const (
	TableTopCollisionZips = "top_collision_zips"
	TableCollisionsByZip  = "collisions_by_zip"
	TableByMonth          = "collisions_by_month"
	TableCasualties       = "casualties"
	TableLowestIncomes    = "lowest_income_zips"
	TableTopZipIncomes    = "income_for_top_zips"
	TableFactors          = "factors"
	TableTopFactors       = "top_factors"
	TableCleaning         = "cleaning"
)

// Writer publishes the aggregate tables of a report to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes one message per table in a single WriteMessages call.
func (w *Writer) Load(ctx context.Context, report domain.Report) error {
	msgs, err := reportMessages(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	w.logger.Info("report published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// cleaningSummary groups the per-dataset cleaning statistics.
type cleaningSummary struct {
	Collisions domain.TableStats `json:"collisions"`
	Incomes    domain.TableStats `json:"incomes"`
	Potholes   domain.TableStats `json:"potholes"`
}

// reportMessages splits a report into one keyed message per table.
func reportMessages(r domain.Report) ([]kafkago.Message, error) {
	tables := []struct {
		key  string
		data any
	}{
		{TableTopCollisionZips, r.TopCollisionZips},
		{TableCollisionsByZip, r.CollisionsByZip},
		{TableByMonth, r.CollisionsByMonth},
		{TableCasualties, r.Casualties},
		{TableLowestIncomes, r.LowestIncomeZips},
		{TableTopZipIncomes, r.IncomeForTopZips},
		{TableFactors, r.Factors},
		{TableTopFactors, r.TopFactors},
		{TableCleaning, cleaningSummary{
			Collisions: r.CollisionStats,
			Incomes:    r.IncomeStats,
			Potholes:   r.PotholeStats,
		}},
	}

	msgs := make([]kafkago.Message, 0, len(tables))
	for _, t := range tables {
		msg, err := serializeToMessage(t.key, t.data, r.RunID, r.GeneratedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals one table into a Kafka message keyed by its name.
func serializeToMessage(key string, data any, runID string, generatedAt time.Time) (kafkago.Message, error) {
	value, err := json.Marshal(data)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s: %w", key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
