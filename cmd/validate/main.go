// Command validate checks a set of ETL inputs before a run: the three CSV
// exports must load, cleaning must account for every row, and the zip codes
// the reports rank must be drawable on the boundary map and joinable to the
// income data. Paths come from the same environment variables as the ETL.
//
// Usage:
//
//	COLLISIONS_CSV=data/mock/Motor_Vehicle_Collisions_2019_Crashes.csv \
//	  go run ./cmd/validate
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/boundary"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/nyc-collision-etl/internal/config"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
	"github.com/couchcryptid/nyc-collision-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	maxErrors := flag.Int("max-errors", 20, "detailed errors printed per phase")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(context.Background(), cfg, os.Stdout, *maxErrors))
}

func run(ctx context.Context, cfg *config.Config, out io.Writer, maxErrors int) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Fprintln(out, "=== Collision ETL Input Validation ===")
	fmt.Fprintln(out)

	zips, err := boundary.Load(cfg.BoundaryPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	raw, err := csvsource.New(cfg, logger).Extract(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	// Backfill is left off so the checks describe the files as they are.
	tables, err := pipeline.NewTransformer(nil, "", observability.NewMetricsForTesting(), logger).Transform(ctx, raw)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	report := domain.Analyze(tables, "validate", domain.AnalyzeOptions{TopZips: cfg.TopZips, TopFactors: cfg.TopFactors})

	phases := []*phase{
		validateAccounting(tables),
		validateSurvivors(tables),
		validateBoundaryCoverage(report, zips),
		validateIncomeCoverage(report),
		validateCoordinates(tables, zips),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows kept: %d/%d collisions, %d/%d incomes, %d/%d potholes; %d boundary zones\n",
		tables.CollisionStats.Kept, tables.CollisionStats.Read,
		tables.IncomeStats.Kept, tables.IncomeStats.Read,
		tables.PotholeStats.Kept, tables.PotholeStats.Read,
		zips.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Fprintf(out, "  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateAccounting checks that every row read was either kept or dropped
// for a recorded reason.
func validateAccounting(t domain.Tables) *phase {
	p := &phase{name: "Cleaning accounts for every row"}
	for _, ds := range []struct {
		name  string
		stats domain.TableStats
	}{
		{"collisions", t.CollisionStats},
		{"incomes", t.IncomeStats},
		{"potholes", t.PotholeStats},
	} {
		if got := ds.stats.Kept + ds.stats.TotalDropped(); got != ds.stats.Read {
			p.errorf("%s: read %d, kept %d + dropped %d = %d", ds.name, ds.stats.Read, ds.stats.Kept, ds.stats.TotalDropped(), got)
		}
	}
	return p
}

// validateSurvivors checks that each dataset keeps at least one row.
func validateSurvivors(t domain.Tables) *phase {
	p := &phase{name: "Every dataset has usable rows"}
	if len(t.Collisions) == 0 {
		p.errorf("no collisions survived cleaning")
	}
	if len(t.Incomes) == 0 {
		p.errorf("no %d all-household zip incomes survived cleaning", domain.AnalysisYear)
	}
	if len(t.Potholes) == 0 {
		p.errorf("no %d potholes survived cleaning", domain.AnalysisYear)
	}
	return p
}

// validateBoundaryCoverage checks that the top collision zips have a zone to
// shade on the choropleth.
func validateBoundaryCoverage(r domain.Report, zips *boundary.Set) *phase {
	p := &phase{name: "Top zip codes exist on the boundary map"}
	known := make(map[string]bool)
	for _, z := range zips.Zips() {
		known[z] = true
	}
	for _, z := range r.TopCollisionZips {
		if !known[z.ZipCode] {
			p.errorf("zip %s (%d collisions) has no boundary zone", z.ZipCode, z.Count)
		}
	}
	return p
}

// validateIncomeCoverage checks that the top collision zips join to an income.
func validateIncomeCoverage(r domain.Report) *phase {
	p := &phase{name: "Top zip codes have a median income"}
	joined := make(map[string]bool, len(r.IncomeForTopZips))
	for _, inc := range r.IncomeForTopZips {
		joined[inc.ZipCode] = true
	}
	for _, z := range r.TopCollisionZips {
		if !joined[z.ZipCode] {
			p.errorf("zip %s has no %d all-household income", z.ZipCode, domain.AnalysisYear)
		}
	}
	return p
}

// validateCoordinates checks that collision coordinates fall inside the zone
// of the zip code they were recorded with.
func validateCoordinates(t domain.Tables, zips *boundary.Set) *phase {
	p := &phase{name: "Collision coordinates match their zip code"}
	ctx := context.Background()
	for _, c := range t.Collisions {
		zip, _ := zips.ResolveZip(ctx, c.Geo.Lat, c.Geo.Lon)
		if zip != "" && zip != c.ZipCode {
			p.errorf("collision on %s at (%.5f, %.5f) recorded in %s lies in %s",
				c.Date.Format("2006-01-02"), c.Geo.Lat, c.Geo.Lon, c.ZipCode, zip)
		}
	}
	return p
}
