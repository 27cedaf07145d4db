package domain

import (
	"sort"
	"time"
)

// Default ranking sizes.
const (
	DefaultTopZips    = 5
	DefaultTopFactors = 10
)

// ZipCount is the number of collisions recorded in one zip code.
type ZipCount struct {
	ZipCode string `json:"zip_code"`
	Count   int    `json:"count"`
}

// MonthCount is the number of collisions in one calendar month (1-12).
type MonthCount struct {
	Month int `json:"month"`
	Count int `json:"count"`
}

// FactorCount is the frequency of one contributing-factor value.
type FactorCount struct {
	Factor string `json:"factor"`
	Count  int    `json:"count"`
}

// Casualties sums the persons injured and killed across all collisions.
type Casualties struct {
	Injured int `json:"injured"`
	Killed  int `json:"killed"`
}

// Report is the full set of aggregates computed in one run.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	TopCollisionZips  []ZipCount    `json:"top_collision_zips"`
	CollisionsByMonth []MonthCount  `json:"collisions_by_month"`
	Casualties        Casualties    `json:"casualties"`
	LowestIncomeZips  []Income      `json:"lowest_income_zips"`
	IncomeForTopZips  []Income      `json:"income_for_top_zips"`
	DistinctFactors   []string      `json:"distinct_factors"`
	Factors           []FactorCount `json:"factors"`
	TopFactors        []FactorCount `json:"top_factors"`
	CollisionsByZip   []ZipCount    `json:"collisions_by_zip"`

	// Heat map inputs, excluded from published reports.
	CollisionPoints []Geo `json:"-"`
	PotholePoints   []Geo `json:"-"`

	CollisionStats TableStats `json:"collision_stats"`
	IncomeStats    TableStats `json:"income_stats"`
	PotholeStats   TableStats `json:"pothole_stats"`
}

// AnalyzeOptions sizes the rankings in a Report.
type AnalyzeOptions struct {
	TopZips    int
	TopFactors int
}

// Analyze runs every aggregate over the cleaned tables. It stamps the report
// with the package clock; runID is carried through untouched.
func Analyze(t Tables, runID string, opts AnalyzeOptions) Report {
	if opts.TopZips <= 0 {
		opts.TopZips = DefaultTopZips
	}
	if opts.TopFactors <= 0 {
		opts.TopFactors = DefaultTopFactors
	}

	topZips := TopCollisionZips(t.Collisions, opts.TopZips)
	factors := FactorFrequency(t.Collisions)

	return Report{
		RunID:             runID,
		GeneratedAt:       clock.Now().UTC(),
		TopCollisionZips:  topZips,
		CollisionsByMonth: CollisionsByMonth(t.Collisions),
		Casualties:        SumCasualties(t.Collisions),
		LowestIncomeZips:  LowestIncomeZips(t.Incomes, opts.TopZips),
		IncomeForTopZips:  IncomeForZips(t.Incomes, topZips),
		DistinctFactors:   DistinctFactors(t.Collisions),
		Factors:           factors,
		TopFactors:        TopFactors(factors, opts.TopFactors),
		CollisionsByZip:   CollisionsByZip(t.Collisions),
		CollisionPoints:   collisionPoints(t.Collisions),
		PotholePoints:     potholePoints(t.Potholes),
		CollisionStats:    t.CollisionStats.Clone(),
		IncomeStats:       t.IncomeStats.Clone(),
		PotholeStats:      t.PotholeStats.Clone(),
	}
}

// CollisionsByZip counts collisions per zip code, ordered by zip code.
func CollisionsByZip(collisions []Collision) []ZipCount {
	counts := make(map[string]int)
	for i := range collisions {
		counts[collisions[i].ZipCode]++
	}

	out := make([]ZipCount, 0, len(counts))
	for zip, n := range counts {
		out = append(out, ZipCount{ZipCode: zip, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZipCode < out[j].ZipCode })
	return out
}

// TopCollisionZips returns the n zip codes with the most collisions, highest
// first. Equal counts are ordered by zip code.
func TopCollisionZips(collisions []Collision, n int) []ZipCount {
	out := CollisionsByZip(collisions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return truncate(out, n)
}

// CollisionsByMonth counts collisions per month, ordered by month number.
// Months without collisions are omitted.
func CollisionsByMonth(collisions []Collision) []MonthCount {
	var counts [13]int
	for i := range collisions {
		if m := collisions[i].Month; m >= 1 && m <= 12 {
			counts[m]++
		}
	}

	var out []MonthCount
	for m := 1; m <= 12; m++ {
		if counts[m] > 0 {
			out = append(out, MonthCount{Month: m, Count: counts[m]})
		}
	}
	return out
}

// SumCasualties totals persons injured and killed.
func SumCasualties(collisions []Collision) Casualties {
	var c Casualties
	for i := range collisions {
		c.Injured += collisions[i].Injured
		c.Killed += collisions[i].Killed
	}
	return c
}

// LowestIncomeZips returns the n zip codes with the lowest median income,
// lowest first. Only the first row seen for each zip code is considered;
// equal incomes are ordered by zip code.
func LowestIncomeZips(incomes []Income, n int) []Income {
	seen := make(map[string]bool, len(incomes))
	out := make([]Income, 0, len(incomes))
	for _, inc := range incomes {
		if seen[inc.ZipCode] {
			continue
		}
		seen[inc.ZipCode] = true
		out = append(out, inc)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Income != out[j].Income {
			return out[i].Income < out[j].Income
		}
		return out[i].ZipCode < out[j].ZipCode
	})
	return truncate(out, n)
}

// IncomeForZips returns the income rows whose zip code appears in zips, in
// their original order.
func IncomeForZips(incomes []Income, zips []ZipCount) []Income {
	wanted := make(map[string]bool, len(zips))
	for _, z := range zips {
		wanted[z.ZipCode] = true
	}

	var out []Income
	for _, inc := range incomes {
		if wanted[inc.ZipCode] {
			out = append(out, inc)
		}
	}
	return out
}

// FactorFrequency counts each distinct contributing factor, most frequent
// first. Equal counts are ordered by factor text.
func FactorFrequency(collisions []Collision) []FactorCount {
	counts := make(map[string]int)
	for i := range collisions {
		counts[collisions[i].Factor]++
	}

	out := make([]FactorCount, 0, len(counts))
	for f, n := range counts {
		out = append(out, FactorCount{Factor: f, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Factor < out[j].Factor
	})
	return out
}

// TopFactors returns the first n entries of a frequency table produced by
// FactorFrequency.
func TopFactors(factors []FactorCount, n int) []FactorCount {
	return truncate(append([]FactorCount(nil), factors...), n)
}

// DistinctFactors lists the contributing factors in order of first appearance.
func DistinctFactors(collisions []Collision) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range collisions {
		f := collisions[i].Factor
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func collisionPoints(collisions []Collision) []Geo {
	out := make([]Geo, 0, len(collisions))
	for i := range collisions {
		if collisions[i].Geo.Mappable() {
			out = append(out, collisions[i].Geo)
		}
	}
	return out
}

func potholePoints(potholes []Pothole) []Geo {
	out := make([]Geo, 0, len(potholes))
	for i := range potholes {
		if potholes[i].Geo.Mappable() {
			out = append(out, potholes[i].Geo)
		}
	}
	return out
}

func truncate[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
