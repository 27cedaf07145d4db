// Package console prints the aggregate tables of a report as aligned text.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Printer writes a report to w. It implements pipeline.Loader.
type Printer struct {
	w io.Writer
	p *message.Printer
}

// NewPrinter creates a Printer using English digit grouping.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, p: message.NewPrinter(language.English)}
}

func (pr *Printer) Name() string { return "console" }

// Load prints every aggregate table in a fixed order.
func (pr *Printer) Load(ctx context.Context, report domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(pr.w, 0, 4, 2, ' ', 0)
	sections := []func(io.Writer, domain.Report){
		pr.topZips,
		pr.byMonth,
		pr.casualties,
		pr.lowestIncomes,
		pr.topZipIncomes,
		pr.factors,
		pr.topFactors,
		pr.cleaning,
	}
	for _, section := range sections {
		section(tw, report)
		pr.p.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	return nil
}

func (pr *Printer) topZips(w io.Writer, r domain.Report) {
	pr.p.Fprintf(w, "Top %d zip codes by collisions\n", len(r.TopCollisionZips))
	pr.p.Fprintln(w, "ZIP CODE\tCOLLISIONS")
	for _, z := range r.TopCollisionZips {
		pr.p.Fprintf(w, "%s\t%d\n", z.ZipCode, z.Count)
	}
}

func (pr *Printer) byMonth(w io.Writer, r domain.Report) {
	pr.p.Fprintln(w, "Collisions by month")
	pr.p.Fprintln(w, "MONTH\tCOLLISIONS")
	for _, m := range r.CollisionsByMonth {
		pr.p.Fprintf(w, "%s\t%d\n", time.Month(m.Month), m.Count)
	}
}

func (pr *Printer) casualties(w io.Writer, r domain.Report) {
	pr.p.Fprintln(w, "Casualties")
	pr.p.Fprintf(w, "Persons injured\t%d\n", r.Casualties.Injured)
	pr.p.Fprintf(w, "Persons killed\t%d\n", r.Casualties.Killed)
}

func (pr *Printer) lowestIncomes(w io.Writer, r domain.Report) {
	pr.p.Fprintf(w, "Lowest %d median household incomes\n", len(r.LowestIncomeZips))
	pr.incomeTable(w, r.LowestIncomeZips)
}

func (pr *Printer) topZipIncomes(w io.Writer, r domain.Report) {
	pr.p.Fprintln(w, "Median household income in the top collision zip codes")
	pr.incomeTable(w, r.IncomeForTopZips)
}

func (pr *Printer) incomeTable(w io.Writer, incomes []domain.Income) {
	pr.p.Fprintln(w, "ZIP CODE\tHOUSEHOLD TYPE\tYEAR\tMEDIAN INCOME")
	for _, inc := range incomes {
		pr.p.Fprintf(w, "%s\t%s\t%s\t$%d\n", inc.ZipCode, inc.Household, strconv.Itoa(inc.Year), inc.Income)
	}
}

func (pr *Printer) factors(w io.Writer, r domain.Report) {
	pr.p.Fprintf(w, "Contributing factors (%d distinct)\n", len(r.DistinctFactors))
	pr.p.Fprintln(w, "FACTOR\tCOLLISIONS")
	for _, f := range r.Factors {
		pr.p.Fprintf(w, "%s\t%d\n", f.Factor, f.Count)
	}
}

func (pr *Printer) topFactors(w io.Writer, r domain.Report) {
	pr.p.Fprintf(w, "Top %d contributing factors\n", len(r.TopFactors))
	pr.p.Fprintln(w, "FACTOR\tCOLLISIONS")
	for _, f := range r.TopFactors {
		pr.p.Fprintf(w, "%s\t%d\n", f.Factor, f.Count)
	}
}

func (pr *Printer) cleaning(w io.Writer, r domain.Report) {
	pr.p.Fprintln(w, "Cleaning summary")
	pr.p.Fprintln(w, "DATASET\tREAD\tKEPT\tDROPPED")
	for _, ds := range []struct {
		name  string
		stats domain.TableStats
	}{
		{"collisions", r.CollisionStats},
		{"incomes", r.IncomeStats},
		{"potholes", r.PotholeStats},
	} {
		pr.p.Fprintf(w, "%s\t%d\t%d\t%d\n", ds.name, ds.stats.Read, ds.stats.Kept, ds.stats.TotalDropped())
		for _, reason := range ds.stats.Reasons() {
			pr.p.Fprintf(w, "  %s\t\t\t%d\n", reason, ds.stats.Dropped[reason])
		}
	}
}
