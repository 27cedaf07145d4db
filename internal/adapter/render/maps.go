// Package render writes the Leaflet map pages: collision and pothole heat maps
// and the per-zip collision choropleth.
package render

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/boundary"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
)

// Output file names.
const (
	CollisionHeatMapFile = "output1.html"
	ChoroplethFile       = "output2.html"
	PotholeHeatMapFile   = "output4.html"
)

// Base map view: lower Manhattan.
const (
	CenterLat   = 40.7128
	CenterLon   = -74.0060
	DefaultZoom = 12
)

const (
	fillOpacity = 0.75
	lineOpacity = 0.75

	// choroplethProperty carries each zip's count in the choropleth GeoJSON.
	choroplethProperty = "COLLISIONS"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

var mapTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

type page struct {
	Title       string
	Kind        string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	ZipField    string
	FillOpacity float64
	LineOpacity float64
	Boundary    json.RawMessage
	Heat        [][2]float64
	Choropleth  *choropleth
}

type choropleth struct {
	Label  string            `json:"label"`
	Colors map[string]string `json:"colors"`
	NoData string            `json:"noData"`
	Bins   []legendBin       `json:"bins"`
}

func newPage(title, kind string) page {
	return page{
		Title:       title,
		Kind:        kind,
		CenterLat:   CenterLat,
		CenterLon:   CenterLon,
		Zoom:        DefaultZoom,
		ZipField:    boundary.ZipProperty,
		FillOpacity: fillOpacity,
		LineOpacity: lineOpacity,
	}
}

// WriteHeatMap renders a heat map of points over the zip boundaries, with a
// zip-code tooltip on every polygon.
func WriteHeatMap(w io.Writer, title string, points []domain.Geo, b *boundary.Set) error {
	geo, err := b.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}

	p := newPage(title, "heat")
	p.Boundary = geo
	p.Heat = make([][2]float64, len(points))
	for i, pt := range points {
		p.Heat[i] = [2]float64{pt.Lat, pt.Lon}
	}
	return mapTemplate.Execute(w, p)
}

// WriteChoropleth renders the zip boundaries shaded by collision count.
func WriteChoropleth(w io.Writer, title string, counts []domain.ZipCount, b *boundary.Set) error {
	values := make(map[string]int, len(counts))
	colors := make(map[string]string, len(counts))
	for _, c := range counts {
		values[c.ZipCode] = c.Count
		colors[c.ZipCode] = BinColor(c.Count)
	}

	geo, err := b.WithValues(choroplethProperty, values)
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}

	p := newPage(title, "choropleth")
	p.Boundary = geo
	p.Choropleth = &choropleth{
		Label:  "Collisions per zip code",
		Colors: colors,
		NoData: NoDataColor,
		Bins:   legend(),
	}
	return mapTemplate.Execute(w, p)
}

// MapSink writes the three map pages into a directory.
// It implements pipeline.Loader.
type MapSink struct {
	dir      string
	boundary *boundary.Set
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewMapSink creates a MapSink writing into dir.
func NewMapSink(dir string, b *boundary.Set, metrics *observability.Metrics, logger *slog.Logger) *MapSink {
	return &MapSink{dir: dir, boundary: b, metrics: metrics, logger: logger}
}

func (s *MapSink) Name() string { return "maps" }

// Load writes output1.html, output2.html and output4.html.
func (s *MapSink) Load(ctx context.Context, report domain.Report) error {
	pages := []struct {
		file   string
		render func(io.Writer) error
	}{
		{CollisionHeatMapFile, func(w io.Writer) error {
			return WriteHeatMap(w, "NYC collisions 2019", report.CollisionPoints, s.boundary)
		}},
		{ChoroplethFile, func(w io.Writer) error {
			return WriteChoropleth(w, "NYC collisions per zip code 2019", report.CollisionsByZip, s.boundary)
		}},
		{PotholeHeatMapFile, func(w io.Writer) error {
			return WriteHeatMap(w, "NYC pothole reports 2019", report.PotholePoints, s.boundary)
		}},
	}

	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.dir, pg.file)
		if err := writeFile(path, pg.render); err != nil {
			return err
		}
		s.metrics.ArtifactsWritten.WithLabelValues("map").Inc()
		s.logger.Info("map written", "path", path)
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := render(w); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
