package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
)

// Backfill lookup outcomes.
const (
	outcomeResolved = "resolved"
	outcomeMiss     = "miss"
	outcomeError    = "error"
)

// CollisionTransformer implements Transformer using the domain parse functions
// with optional zip backfill for collisions that arrive without a zip code.
type CollisionTransformer struct {
	resolver domain.ZipResolver
	source   domain.ZipSource
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a CollisionTransformer. Pass a nil resolver to drop
// collisions without a zip code.
func NewTransformer(resolver domain.ZipResolver, source domain.ZipSource, metrics *observability.Metrics, logger *slog.Logger) *CollisionTransformer {
	t := &CollisionTransformer{source: source, metrics: metrics, logger: logger}
	if resolver != nil {
		t.resolver = &countingResolver{inner: resolver, source: source, metrics: metrics}
	}
	return t
}

// Transform coerces every raw row into its typed record. Rows that fail
// coercion are counted in the returned stats and left out.
func (t *CollisionTransformer) Transform(ctx context.Context, raw domain.RawTables) (domain.Tables, error) {
	out := domain.Tables{
		CollisionStats: raw.CollisionStats.Clone(),
		IncomeStats:    raw.IncomeStats.Clone(),
		PotholeStats:   raw.PotholeStats.Clone(),
	}

	collisions, err := t.collisions(ctx, raw.Collisions, &out.CollisionStats)
	if err != nil {
		return domain.Tables{}, err
	}
	out.Collisions = collisions

	out.Incomes = make([]domain.Income, 0, len(raw.Incomes))
	for _, r := range raw.Incomes {
		inc, reason := domain.ParseIncome(r)
		if reason != "" {
			out.IncomeStats.Drop(reason, 1)
			continue
		}
		out.Incomes = append(out.Incomes, inc)
	}
	out.IncomeStats.Kept = len(out.Incomes)

	out.Potholes = make([]domain.Pothole, 0, len(raw.Potholes))
	for _, r := range raw.Potholes {
		p, reason := domain.ParsePothole(r)
		if reason != "" {
			out.PotholeStats.Drop(reason, 1)
			continue
		}
		out.Potholes = append(out.Potholes, p)
	}
	out.PotholeStats.Kept = len(out.Potholes)

	return out, nil
}

func (t *CollisionTransformer) collisions(ctx context.Context, raw []domain.RawCollision, stats *domain.TableStats) ([]domain.Collision, error) {
	out := make([]domain.Collision, 0, len(raw))
	backfilled := 0

	for _, r := range raw {
		c, reason := domain.ParseCollision(r)
		if reason == domain.ReasonMissingZip && t.resolver != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var ok bool
			if c, ok = domain.BackfillZip(ctx, c, t.resolver, t.source, t.logger); ok {
				reason = ""
				backfilled++
			}
		}
		if reason != "" {
			stats.Drop(reason, 1)
			continue
		}
		out = append(out, c)
	}

	stats.Kept = len(out)
	if t.resolver != nil {
		t.logger.Info("zip backfill finished", "resolver", t.source, "backfilled", backfilled)
	}
	return out, nil
}

// countingResolver records the outcome of every backfill lookup.
type countingResolver struct {
	inner   domain.ZipResolver
	source  domain.ZipSource
	metrics *observability.Metrics
}

func (r *countingResolver) ResolveZip(ctx context.Context, lat, lon float64) (string, error) {
	zip, err := r.inner.ResolveZip(ctx, lat, lon)
	outcome := outcomeResolved
	switch {
	case err != nil:
		outcome = outcomeError
	case zip == "":
		outcome = outcomeMiss
	}
	r.metrics.BackfillLookups.WithLabelValues(string(r.source), outcome).Inc()
	return zip, err
}
