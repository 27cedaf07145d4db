package csvsource

import (
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// nanValues are the cell spellings treated as missing.
var nanValues = []string{"", "NA", "N/A", "n/a", "NaN", "nan", "NULL", "null"}

// frame is a string-typed dataframe being narrowed by successive filters.
// Every filter records how many rows it removed in stats.
type frame struct {
	df    dataframe.DataFrame
	rows  int
	stats *domain.TableStats
}

func readFrame(r io.Reader, required ...string) (*frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}

	if missing := missingColumns(df.Names(), required); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := df.Nrow()
	return &frame{
		df:    df,
		rows:  rows,
		stats: &domain.TableStats{Read: rows},
	}, nil
}

// fillSentinel replaces every missing cell with domain.Sentinel.
func (f *frame) fillSentinel() {
	if f.rows == 0 {
		return
	}
	f.df = f.df.Capply(func(s series.Series) series.Series {
		vals := s.Records()
		for i := range vals {
			if s.Elem(i).IsNA() {
				vals[i] = domain.Sentinel
			}
		}
		return series.New(vals, series.String, s.Name)
	})
}

// exclude removes the rows whose col value satisfies match.
func (f *frame) exclude(col string, reason domain.DropReason, match func(string) bool) error {
	if f.rows == 0 {
		return nil
	}

	vals := f.df.Col(col).Records()
	kept := 0
	for _, v := range vals {
		if !match(v) {
			kept++
		}
	}
	f.stats.Drop(reason, len(vals)-kept)

	switch kept {
	case len(vals):
		return nil
	case 0:
		f.rows = 0
		return nil
	}

	f.df = f.df.Filter(dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool { return !match(el.String()) },
	})
	if f.df.Err != nil {
		return fmt.Errorf("filter %s: %w", col, f.df.Err)
	}
	f.rows = f.df.Nrow()
	return nil
}

// keep removes the rows whose col value does not satisfy match.
func (f *frame) keep(col string, reason domain.DropReason, match func(string) bool) error {
	return f.exclude(col, reason, func(v string) bool { return !match(v) })
}

// dropColumns removes the named columns that are present.
func (f *frame) dropColumns(cols []string) error {
	present := intersect(f.df.Names(), cols)
	if len(present) == 0 || f.rows == 0 {
		return nil
	}
	f.df = f.df.Drop(present)
	if f.df.Err != nil {
		return fmt.Errorf("drop columns: %w", f.df.Err)
	}
	return nil
}

// columns returns the surviving values of each named column.
func (f *frame) columns(names ...string) [][]string {
	out := make([][]string, len(names))
	if f.rows == 0 {
		return out
	}
	for i, name := range names {
		out[i] = f.df.Col(name).Records()
	}
	return out
}

// finish stamps the surviving row count on the stats.
func (f *frame) finish() domain.TableStats {
	f.stats.Kept = f.rows
	return *f.stats
}

// filterStep excludes rows whose col value matches.
type filterStep struct {
	col    string
	reason domain.DropReason
	match  func(string) bool
}

func contains(substr string) func(string) bool {
	return func(v string) bool { return strings.Contains(v, substr) }
}

func missingColumns(have, want []string) []string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	var missing []string
	for _, w := range want {
		if !set[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

func intersect(have, want []string) []string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	var out []string
	for _, w := range want {
		if set[w] {
			out = append(out, w)
		}
	}
	return out
}
