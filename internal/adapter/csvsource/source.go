package csvsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/couchcryptid/nyc-collision-etl/internal/config"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Source reads the collision, income and pothole CSV exports and applies the
// frame-level cleaning rules. It implements pipeline.Extractor.
type Source struct {
	collisionsPath string
	incomesPath    string
	potholesPath   string
	keepMissingZip bool
	logger         *slog.Logger
}

// New creates a Source for the configured input files. Collisions without a
// zip code are retained when a zip backfill resolver is configured.
func New(cfg *config.Config, logger *slog.Logger) *Source {
	return &Source{
		collisionsPath: cfg.CollisionsPath,
		incomesPath:    cfg.IncomesPath,
		potholesPath:   cfg.PotholesPath,
		keepMissingZip: cfg.ZipBackfill != config.BackfillNone,
		logger:         logger,
	}
}

// Extract loads all three datasets concurrently. A missing file or a file
// without the required columns aborts the extraction.
func (s *Source) Extract(ctx context.Context) (domain.RawTables, error) {
	var out domain.RawTables
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.load(ctx, "collisions", s.collisionsPath, func(r io.Reader) (domain.TableStats, error) {
			rows, stats, err := ReadCollisions(r, s.keepMissingZip)
			out.Collisions = rows
			return stats, err
		}, &out.CollisionStats)
	})
	g.Go(func() error {
		return s.load(ctx, "incomes", s.incomesPath, func(r io.Reader) (domain.TableStats, error) {
			rows, stats, err := ReadIncomes(r)
			out.Incomes = rows
			return stats, err
		}, &out.IncomeStats)
	})
	g.Go(func() error {
		return s.load(ctx, "potholes", s.potholesPath, func(r io.Reader) (domain.TableStats, error) {
			rows, stats, err := ReadPotholes(r)
			out.Potholes = rows
			return stats, err
		}, &out.PotholeStats)
	})

	if err := g.Wait(); err != nil {
		return domain.RawTables{}, err
	}
	return out, nil
}

func (s *Source) load(ctx context.Context, dataset, path string, read func(io.Reader) (domain.TableStats, error), stats *domain.TableStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s csv: %w", dataset, err)
	}
	defer f.Close()

	st, err := read(f)
	if err != nil {
		return fmt.Errorf("read %s csv %q: %w", dataset, path, err)
	}
	*stats = st

	s.logger.Info("dataset loaded",
		"dataset", dataset,
		"path", path,
		"rows_read", st.Read,
		"rows_kept", st.Kept,
		"rows_dropped", st.TotalDropped(),
	)
	return nil
}

// ReadCollisions parses a collision export. Rows with an unspecified or
// missing contributing factor, missing coordinates or a missing location are
// removed; rows with a missing zip code are removed unless keepMissingZip is
// set, in which case their zip cell holds domain.Sentinel.
func ReadCollisions(r io.Reader, keepMissingZip bool) ([]domain.RawCollision, domain.TableStats, error) {
	f, err := readFrame(r,
		domain.ColCrashDate, domain.ColZipCode, domain.ColLatitude, domain.ColLongitude,
		domain.ColLocation, domain.ColFactor, domain.ColInjured, domain.ColKilled,
	)
	if err != nil {
		return nil, domain.TableStats{}, err
	}

	f.fillSentinel()

	invalid := contains(domain.Sentinel)
	steps := []filterStep{
		{domain.ColFactor, domain.ReasonUnspecifiedFactor, contains("Unspecified")},
		{domain.ColFactor, domain.ReasonMissingFactor, invalid},
		{domain.ColLatitude, domain.ReasonMissingCoordinates, invalid},
		{domain.ColLongitude, domain.ReasonMissingCoordinates, invalid},
		{domain.ColLocation, domain.ReasonMissingLocation, invalid},
	}
	if !keepMissingZip {
		steps = append(steps, filterStep{domain.ColZipCode, domain.ReasonMissingZip, invalid})
	}
	for _, st := range steps {
		if err := f.exclude(st.col, st.reason, st.match); err != nil {
			return nil, domain.TableStats{}, err
		}
	}

	if err := f.dropColumns(domain.DiscardedCollisionColumns); err != nil {
		return nil, domain.TableStats{}, err
	}

	cols := f.columns(
		domain.ColCrashDate, domain.ColZipCode, domain.ColLatitude, domain.ColLongitude,
		domain.ColLocation, domain.ColFactor, domain.ColInjured, domain.ColKilled,
	)
	rows := make([]domain.RawCollision, f.rows)
	for i := range rows {
		rows[i] = domain.RawCollision{
			CrashDate: cols[0][i],
			ZipCode:   cols[1][i],
			Latitude:  cols[2][i],
			Longitude: cols[3][i],
			Location:  cols[4][i],
			Factor:    cols[5][i],
			Injured:   cols[6][i],
			Killed:    cols[7][i],
		}
	}
	return rows, f.finish(), nil
}

// ReadIncomes parses a median-income export, keeping zip-code rows covering
// all household types for the analysis year.
func ReadIncomes(r io.Reader) ([]domain.RawIncome, domain.TableStats, error) {
	f, err := readFrame(r,
		domain.ColIncomeLocation, domain.ColHouseholdType, domain.ColTimeFrame, domain.ColIncomeData,
	)
	if err != nil {
		return nil, domain.TableStats{}, err
	}

	f.fillSentinel()

	if err := f.exclude(domain.ColIncomeLocation, domain.ReasonMissingLocation, func(v string) bool {
		return v == domain.Sentinel
	}); err != nil {
		return nil, domain.TableStats{}, err
	}
	if err := f.dropColumns(domain.DiscardedIncomeColumns); err != nil {
		return nil, domain.TableStats{}, err
	}
	if err := f.keep(domain.ColIncomeLocation, domain.ReasonNotZipLocation, contains(domain.ZipLocationMarker)); err != nil {
		return nil, domain.TableStats{}, err
	}
	if err := f.keep(domain.ColHouseholdType, domain.ReasonNotAllHouseholds, contains(domain.AllHouseholdsMarker)); err != nil {
		return nil, domain.TableStats{}, err
	}
	if err := f.keep(domain.ColTimeFrame, domain.ReasonWrongYear, contains(strconv.Itoa(domain.AnalysisYear))); err != nil {
		return nil, domain.TableStats{}, err
	}

	cols := f.columns(
		domain.ColIncomeLocation, domain.ColHouseholdType, domain.ColTimeFrame, domain.ColIncomeData,
	)
	rows := make([]domain.RawIncome, f.rows)
	for i := range rows {
		rows[i] = domain.RawIncome{
			Location:      cols[0][i],
			HouseholdType: cols[1][i],
			TimeFrame:     cols[2][i],
			Data:          cols[3][i],
		}
	}
	return rows, f.finish(), nil
}

// ReadPotholes parses a pothole complaint export, keeping reports created in
// the analysis year that carry both coordinates.
func ReadPotholes(r io.Reader) ([]domain.RawPothole, domain.TableStats, error) {
	f, err := readFrame(r,
		domain.ColCreatedDate, domain.ColPotholeLatitude, domain.ColPotholeLongitude,
	)
	if err != nil {
		return nil, domain.TableStats{}, err
	}

	f.fillSentinel()

	year := strconv.Itoa(domain.AnalysisYear)
	if err := f.keep(domain.ColCreatedDate, domain.ReasonWrongYear, func(v string) bool {
		return domain.CreatedYear(v) == year
	}); err != nil {
		return nil, domain.TableStats{}, err
	}

	invalid := contains(domain.Sentinel)
	if err := f.exclude(domain.ColPotholeLatitude, domain.ReasonMissingCoordinates, invalid); err != nil {
		return nil, domain.TableStats{}, err
	}
	if err := f.exclude(domain.ColPotholeLongitude, domain.ReasonMissingCoordinates, invalid); err != nil {
		return nil, domain.TableStats{}, err
	}

	cols := f.columns(domain.ColCreatedDate, domain.ColPotholeLatitude, domain.ColPotholeLongitude)
	rows := make([]domain.RawPothole, f.rows)
	for i := range rows {
		rows[i] = domain.RawPothole{
			CreatedDate: cols[0][i],
			Latitude:    cols[1][i],
			Longitude:   cols[2][i],
		}
	}
	return rows, f.finish(), nil
}
