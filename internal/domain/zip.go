package domain

import (
	"context"
	"log/slog"
)

// ZipResolver maps a coordinate to the zip code that contains it.
// An empty zip with a nil error means the coordinate matched nothing.
type ZipResolver interface {
	ResolveZip(ctx context.Context, lat, lon float64) (string, error)
}

// BackfillZip assigns a zip code to a collision whose record had none, using
// its coordinates. It reports false when the resolver is nil, fails, or
// returns something that is not a five-digit zip; the collision should then be
// dropped exactly as it would have been without backfill. Unmappable
// positions are never looked up.
func BackfillZip(ctx context.Context, c Collision, resolver ZipResolver, source ZipSource, logger *slog.Logger) (Collision, bool) {
	if resolver == nil || !c.Geo.Mappable() {
		return c, false
	}

	zip, err := resolver.ResolveZip(ctx, c.Geo.Lat, c.Geo.Lon)
	if err != nil {
		logger.Warn("zip backfill failed",
			"resolver", source,
			"lat", c.Geo.Lat,
			"lon", c.Geo.Lon,
			"error", err,
		)
		return c, false
	}

	zip, ok := NormalizeZip(zip)
	if !ok {
		return c, false
	}

	c.ZipCode = zip
	c.ZipSource = source
	return c, true
}
