// Command genmock writes a small synthetic set of inputs for the collision
// ETL: the three CSV exports and a zip code boundary file. Zones form a grid
// over lower Manhattan and Brooklyn, so every generated coordinate falls in
// exactly one zone. Output is fully determined by the seed.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -collisions 5000 -potholes 2000
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/boundary"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Output file names, matching the config defaults.
const (
	collisionsFile = "Motor_Vehicle_Collisions_2019_Crashes.csv"
	incomesFile    = "Median Incomes.csv"
	potholesFile   = "Potholes.csv"
	boundaryFile   = "zipcode_map.geojson"
)

// Grid extent and shape.
const (
	minLat   = 40.60
	minLon   = -74.05
	cellSize = 0.05
	gridRows = 4
	gridCols = 4
)

var jan1 = time.Date(domain.AnalysisYear, time.January, 1, 0, 0, 0, 0, time.UTC)

var factors = []string{
	"Driver Inattention/Distraction",
	"Failure to Yield Right-of-Way",
	"Following Too Closely",
	"Backing Unsafely",
	"Passing or Lane Usage Improper",
	"Unsafe Speed",
	"Traffic Control Disregarded",
	"Unsafe Lane Changing",
	"Turning Improperly",
	"Alcohol Involvement",
	"Pavement Slippery",
	"View Obstructed/Limited",
	"Unspecified",
}

var collisionHeader = []string{
	domain.ColCrashDate, "CRASH TIME", "BOROUGH", domain.ColZipCode,
	domain.ColLatitude, domain.ColLongitude, domain.ColLocation,
	"ON STREET NAME", "CROSS STREET NAME", "OFF STREET NAME",
	domain.ColInjured, domain.ColKilled, domain.ColFactor,
	"CONTRIBUTING FACTOR VEHICLE 2", "COLLISION_ID", "VEHICLE TYPE CODE 1",
}

// zone is one generated grid cell.
type zone struct {
	zip   string
	bound orb.Bound
}

type options struct {
	dir        string
	collisions int
	potholes   int
	seed       uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.dir, "out", "", "output directory")
	flag.IntVar(&opts.collisions, "collisions", 5000, "collision rows to generate")
	flag.IntVar(&opts.potholes, "potholes", 2000, "pothole rows to generate")
	flag.Uint64Var(&opts.seed, "seed", 2019, "random seed")
	flag.Parse()

	if opts.dir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return err
	}
	return generate(opts)
}

func generate(opts options) error {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	zones := grid()

	steps := []struct {
		file  string
		write func(w *csv.Writer) error
	}{
		{collisionsFile, func(w *csv.Writer) error { return writeCollisions(w, rng, zones, opts.collisions) }},
		{incomesFile, func(w *csv.Writer) error { return writeIncomes(w, rng, zones) }},
		{potholesFile, func(w *csv.Writer) error { return writePotholes(w, rng, zones, opts.potholes) }},
	}
	for _, s := range steps {
		path := filepath.Join(opts.dir, s.file)
		if err := writeCSV(path, s.write); err != nil {
			return fmt.Errorf("writing %s: %w", s.file, err)
		}
		log.Printf("wrote %s", path)
	}

	path := filepath.Join(opts.dir, boundaryFile)
	if err := writeBoundary(path, zones); err != nil {
		return fmt.Errorf("writing %s: %w", boundaryFile, err)
	}
	log.Printf("wrote %s (%d zones)", path, len(zones))
	return nil
}

func grid() []zone {
	zones := make([]zone, 0, gridRows*gridCols)
	for r := range gridRows {
		for c := range gridCols {
			lat := minLat + float64(r)*cellSize
			lon := minLon + float64(c)*cellSize
			zones = append(zones, zone{
				zip:   strconv.Itoa(11200 + r*gridCols + c),
				bound: orb.Bound{Min: orb.Point{lon, lat}, Max: orb.Point{lon + cellSize, lat + cellSize}},
			})
		}
	}
	return zones
}

// pointIn returns a point strictly inside z.
func pointIn(rng *rand.Rand, z zone) orb.Point {
	w := z.bound.Max.X() - z.bound.Min.X()
	h := z.bound.Max.Y() - z.bound.Min.Y()
	return orb.Point{
		z.bound.Min.X() + w*(0.05+0.9*rng.Float64()),
		z.bound.Min.Y() + h*(0.05+0.9*rng.Float64()),
	}
}

func writeCollisions(w *csv.Writer, rng *rand.Rand, zones []zone, n int) error {
	if err := w.Write(collisionHeader); err != nil {
		return err
	}
	for i := range n {
		// Lower-numbered zones see more traffic.
		z := zones[min(rng.IntN(len(zones)), rng.IntN(len(zones)))]
		p := pointIn(rng, z)
		lat := strconv.FormatFloat(p.Lat(), 'f', 6, 64)
		lon := strconv.FormatFloat(p.Lon(), 'f', 6, 64)
		location := fmt.Sprintf("(%s, %s)", lat, lon)

		zip := z.zip
		switch x := rng.Float64(); {
		case x < 0.25:
			zip = ""
		case x < 0.45:
			zip += ".0"
		}
		if rng.Float64() < 0.03 {
			lat, lon, location = "", "", ""
		}

		injured := strconv.Itoa(rng.IntN(3))
		if rng.Float64() < 0.01 {
			injured = ""
		}
		killed := "0"
		if rng.Float64() < 0.005 {
			killed = "1"
		}

		factor := factors[rng.IntN(len(factors))]
		if rng.Float64() < 0.02 {
			factor = ""
		}

		row := []string{
			crashDate(rng.IntN(365)), fmt.Sprintf("%d:%02d", rng.IntN(24), rng.IntN(60)), "", zip,
			lat, lon, location,
			"", "", "",
			injured, killed, factor,
			"Unspecified", strconv.Itoa(4_000_000 + i), "Sedan",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeIncomes(w *csv.Writer, rng *rand.Rand, zones []zone) error {
	if err := w.Write([]string{"Location", "Household Type", "TimeFrame", "DataFormat", "Data", "Fips"}); err != nil {
		return err
	}
	for _, z := range zones {
		base := 20_000 + rng.IntN(120_000)
		rows := [][]string{
			{"Zip Code " + z.zip, "All Households", "2019", "Dollars", strconv.Itoa(base), "36047"},
			{"Zip Code " + z.zip, "All Households", "2018", "Dollars", strconv.Itoa(base - 1500), "36047"},
			{"Zip Code " + z.zip, "Families", "2019", "Dollars", strconv.Itoa(base + 8000), "36047"},
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Write([]string{"Brooklyn", "All Households", "2019", "Dollars", "66937", "36047"})
}

func writePotholes(w *csv.Writer, rng *rand.Rand, zones []zone, n int) error {
	if err := w.Write([]string{"Unique Key", "Created Date", "Closed Date", "Complaint Type", "Latitude", "Longitude"}); err != nil {
		return err
	}
	for i := range n {
		p := pointIn(rng, zones[rng.IntN(len(zones))])
		lat := strconv.FormatFloat(p.Lat(), 'f', 6, 64)
		lon := strconv.FormatFloat(p.Lon(), 'f', 6, 64)
		if rng.Float64() < 0.02 {
			lat = ""
		}

		year := 2019
		if rng.Float64() < 0.3 {
			year = 2018
		}
		created := fmt.Sprintf("%02d/%02d/%d %02d:%02d:00 %s",
			1+rng.IntN(12), 1+rng.IntN(28), year, 1+rng.IntN(12), rng.IntN(60), []string{"AM", "PM"}[rng.IntN(2)])

		row := []string{strconv.Itoa(41_000_000 + i), created, "", "Street Condition", lat, lon}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeBoundary(path string, zones []zone) error {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones {
		f := geojson.NewFeature(z.bound.ToPolygon())
		f.Properties[boundary.ZipProperty] = z.zip
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(path string, write func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func crashDate(dayOfYear int) string {
	d := jan1.AddDate(0, 0, dayOfYear)
	return d.Format("01/02/2006")
}
