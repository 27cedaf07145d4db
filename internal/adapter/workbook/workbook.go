// Package workbook exports the aggregate tables of a report as an Excel
// workbook with one sheet per table.
package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
	"github.com/xuri/excelize/v2"
)

// ReportFile is the workbook name written into the output directory.
const ReportFile = "report.xlsx"

// Sheet names, in workbook order.
const (
	SheetTopZips       = "Top Zips"
	SheetByMonth       = "By Month"
	SheetCasualties    = "Casualties"
	SheetLowestIncomes = "Lowest Incomes"
	SheetTopZipIncomes = "Top Zip Incomes"
	SheetFactors       = "Factors"
	SheetTopFactors    = "Top Factors"
	SheetCleaning      = "Cleaning"
)

const colWidth = 22

// table is one sheet: a header row followed by data rows.
type table struct {
	sheet  string
	header []any
	rows   [][]any
}

// Sink writes report.xlsx into a directory. It implements pipeline.Loader.
type Sink struct {
	dir     string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSink creates a workbook Sink writing into dir.
func NewSink(dir string, metrics *observability.Metrics, logger *slog.Logger) *Sink {
	return &Sink{dir: dir, metrics: metrics, logger: logger}
}

func (s *Sink) Name() string { return "workbook" }

// Load builds the workbook and saves it, replacing any previous file.
func (s *Sink) Load(ctx context.Context, report domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := Build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	path := filepath.Join(s.dir, ReportFile)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	s.metrics.ArtifactsWritten.WithLabelValues("workbook").Inc()
	s.logger.Info("workbook written", "path", path, "sheets", len(f.GetSheetList()))
	return nil
}

// Build lays out every aggregate table of report in a new workbook.
// The caller owns the returned file and must Close it.
func Build(report domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	tables := tables(report)

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %q: %w", t.sheet, err)
		}
		if err := writeTable(f, t); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       fmt.Sprintf("NYC collisions %d", domain.AnalysisYear),
		Description: "run " + report.RunID,
		Created:     report.GeneratedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("set properties: %w", err)
	}
	return f, nil
}

func writeTable(f *excelize.File, t table) error {
	lastCol, err := excelize.ColumnNumberToName(len(t.header))
	if err != nil {
		return fmt.Errorf("sheet %q: %w", t.sheet, err)
	}
	if err := f.SetColWidth(t.sheet, "A", lastCol, colWidth); err != nil {
		return fmt.Errorf("sheet %q: %w", t.sheet, err)
	}

	for i, row := range append([][]any{t.header}, t.rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", t.sheet, i+1, err)
		}
	}
	return nil
}

func tables(r domain.Report) []table {
	topZips := table{sheet: SheetTopZips, header: []any{"Zip Code", "Collisions"}}
	for _, z := range r.TopCollisionZips {
		topZips.rows = append(topZips.rows, []any{z.ZipCode, z.Count})
	}

	byMonth := table{sheet: SheetByMonth, header: []any{"Month", "Collisions"}}
	for _, m := range r.CollisionsByMonth {
		byMonth.rows = append(byMonth.rows, []any{time.Month(m.Month).String(), m.Count})
	}

	casualties := table{
		sheet:  SheetCasualties,
		header: []any{"Measure", "Persons"},
		rows: [][]any{
			{"Injured", r.Casualties.Injured},
			{"Killed", r.Casualties.Killed},
		},
	}

	factors := table{sheet: SheetFactors, header: []any{"Factor", "Collisions"}}
	for _, fc := range r.Factors {
		factors.rows = append(factors.rows, []any{fc.Factor, fc.Count})
	}

	topFactors := table{sheet: SheetTopFactors, header: []any{"Factor", "Collisions"}}
	for _, fc := range r.TopFactors {
		topFactors.rows = append(topFactors.rows, []any{fc.Factor, fc.Count})
	}

	cleaning := table{sheet: SheetCleaning, header: []any{"Dataset", "Read", "Kept", "Dropped", "Reason"}}
	for _, ds := range []struct {
		name  string
		stats domain.TableStats
	}{
		{"collisions", r.CollisionStats},
		{"incomes", r.IncomeStats},
		{"potholes", r.PotholeStats},
	} {
		cleaning.rows = append(cleaning.rows, []any{ds.name, ds.stats.Read, ds.stats.Kept, ds.stats.TotalDropped(), "total"})
		for _, reason := range ds.stats.Reasons() {
			cleaning.rows = append(cleaning.rows, []any{ds.name, nil, nil, ds.stats.Dropped[reason], string(reason)})
		}
	}

	return []table{
		topZips,
		byMonth,
		casualties,
		incomeTable(SheetLowestIncomes, r.LowestIncomeZips),
		incomeTable(SheetTopZipIncomes, r.IncomeForTopZips),
		factors,
		topFactors,
		cleaning,
	}
}

func incomeTable(sheet string, incomes []domain.Income) table {
	t := table{sheet: sheet, header: []any{"Zip Code", "Household Type", "Year", "Median Income"}}
	for _, inc := range incomes {
		t.rows = append(t.rows, []any{inc.ZipCode, inc.Household, inc.Year, inc.Income})
	}
	return t
}
