// Package boundary loads the zip-code boundary GeoJSON used by the maps and by
// point-in-polygon zip backfill.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ZipProperty is the feature property holding the zip code.
const ZipProperty = "ZIPCODE"

// minExtent pads degenerate bounds so every zone has a non-empty rectangle.
const minExtent = 1e-9

// ErrNoZones is returned when a boundary file contains no usable zip polygons.
var ErrNoZones = errors.New("boundary has no zip code polygons")

// Set is a parsed boundary file with a spatial index over its zip polygons.
type Set struct {
	fc    *geojson.FeatureCollection
	zones []*zone
	index *rtreego.Rtree
}

// zone is one zip polygon in the index.
type zone struct {
	zip   string
	geom  orb.Geometry
	rect  rtreego.Rect
	order int
}

func (z *zone) Bounds() rtreego.Rect { return z.rect }

// Load reads and parses a boundary GeoJSON file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary %q: %w", path, err)
	}
	return s, nil
}

// Parse decodes a GeoJSON FeatureCollection. Features without a polygon
// geometry or a ZIPCODE property are kept for rendering but not indexed.
func Parse(data []byte) (*Set, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	s := &Set{fc: fc}
	spatials := make([]rtreego.Spatial, 0, len(fc.Features))
	for i, f := range fc.Features {
		zip, ok := FeatureZip(f)
		if !ok || !isArea(f.Geometry) {
			continue
		}
		rect, err := boundRect(f.Geometry.Bound())
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		z := &zone{zip: zip, geom: f.Geometry, rect: rect, order: i}
		s.zones = append(s.zones, z)
		spatials = append(spatials, z)
	}
	if len(s.zones) == 0 {
		return nil, ErrNoZones
	}

	s.index = rtreego.NewTree(2, 25, 50, spatials...)
	return s, nil
}

// FeatureZip returns a feature's ZIPCODE property as text. Numeric values are
// accepted since some exports store the zip as a number.
func FeatureZip(f *geojson.Feature) (string, bool) {
	if f == nil {
		return "", false
	}
	switch v := f.Properties[ZipProperty].(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		if v != math.Trunc(v) || v < 0 {
			return "", false
		}
		return strconv.FormatInt(int64(v), 10), true
	default:
		return "", false
	}
}

// Len reports how many zip polygons are indexed.
func (s *Set) Len() int { return len(s.zones) }

// Zips lists the distinct indexed zip codes in ascending order.
func (s *Set) Zips() []string {
	seen := make(map[string]bool, len(s.zones))
	out := make([]string, 0, len(s.zones))
	for _, z := range s.zones {
		if !seen[z.zip] {
			seen[z.zip] = true
			out = append(out, z.zip)
		}
	}
	sort.Strings(out)
	return out
}

// ZipAt returns the zip code of the polygon containing p. When polygons
// overlap the one listed first in the file wins.
func (s *Set) ZipAt(p orb.Point) (string, bool) {
	candidates := s.index.SearchIntersect(rtreego.Point{p.X(), p.Y()}.ToRect(minExtent))

	var best *zone
	for _, c := range candidates {
		z := c.(*zone)
		if best != nil && z.order > best.order {
			continue
		}
		if contains(z.geom, p) {
			best = z
		}
	}
	if best == nil {
		return "", false
	}
	return best.zip, true
}

// ResolveZip implements domain.ZipResolver. A point outside every polygon
// resolves to an empty zip.
func (s *Set) ResolveZip(_ context.Context, lat, lon float64) (string, error) {
	zip, _ := s.ZipAt(orb.Point{lon, lat})
	return zip, nil
}

// MarshalJSON returns the boundary as GeoJSON.
func (s *Set) MarshalJSON() ([]byte, error) {
	return s.fc.MarshalJSON()
}

// WithValues returns a copy of the boundary with prop set on every feature
// whose zip has an entry in values. Other features get a null prop.
func (s *Set) WithValues(prop string, values map[string]int) ([]byte, error) {
	out := geojson.NewFeatureCollection()
	for _, f := range s.fc.Features {
		nf := geojson.NewFeature(f.Geometry)
		nf.ID = f.ID
		nf.BBox = f.BBox
		nf.Properties = f.Properties.Clone()
		if nf.Properties == nil {
			nf.Properties = geojson.Properties{}
		}

		nf.Properties[prop] = nil
		if zip, ok := FeatureZip(f); ok {
			if v, ok := values[zip]; ok {
				nf.Properties[prop] = v
			}
		}
		out.Append(nf)
	}
	return out.MarshalJSON()
}

func isArea(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min.X(), b.Min.Y()},
		[]float64{math.Max(b.Max.X()-b.Min.X(), minExtent), math.Max(b.Max.Y()-b.Min.Y(), minExtent)},
	)
}
