package boundary

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Set {
	t.Helper()
	s, err := Load(filepath.Join("testdata", "zips.geojson"))
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	s := loadFixture(t)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"10001", "11201"}, s.Zips())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.geojson"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read boundary")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"type": "FeatureCollection", "features": [`))
	require.Error(t, err)
}

func TestParse_NoZones(t *testing.T) {
	_, err := Parse([]byte(`{"type": "FeatureCollection", "features": []}`))
	require.ErrorIs(t, err, ErrNoZones)
}

func TestZipAt(t *testing.T) {
	s := loadFixture(t)

	tests := []struct {
		name  string
		point orb.Point
		zip   string
		found bool
	}{
		{"inside polygon", orb.Point{-74.00, 40.75}, "10001", true},
		{"inside first multipolygon part", orb.Point{-73.99, 40.69}, "11201", true},
		{"inside second multipolygon part", orb.Point{-73.965, 40.685}, "11201", true},
		{"feature without zip", orb.Point{-73.895, 40.805}, "", false},
		{"outside everything", orb.Point{-73.50, 40.50}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zip, ok := s.ZipAt(tt.point)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.zip, zip)
		})
	}
}

func TestResolveZip(t *testing.T) {
	s := loadFixture(t)

	zip, err := s.ResolveZip(context.Background(), 40.75, -74.00)
	require.NoError(t, err)
	assert.Equal(t, "10001", zip)

	zip, err = s.ResolveZip(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, zip)
}

func TestFeatureZip(t *testing.T) {
	f := geojson.NewFeature(orb.Point{0, 0})

	f.Properties[ZipProperty] = " 10451 "
	zip, ok := FeatureZip(f)
	assert.True(t, ok)
	assert.Equal(t, "10451", zip)

	f.Properties[ZipProperty] = float64(11368)
	zip, ok = FeatureZip(f)
	assert.True(t, ok)
	assert.Equal(t, "11368", zip)

	f.Properties[ZipProperty] = 113.5
	_, ok = FeatureZip(f)
	assert.False(t, ok)

	delete(f.Properties, ZipProperty)
	_, ok = FeatureZip(f)
	assert.False(t, ok)
}

func TestWithValues(t *testing.T) {
	s := loadFixture(t)

	data, err := s.WithValues("collisions", map[string]int{"10001": 42})
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	assert.InDelta(t, 42, fc.Features[0].Properties["collisions"], 0.0001)
	assert.Nil(t, fc.Features[1].Properties["collisions"])
	assert.Nil(t, fc.Features[2].Properties["collisions"])
	assert.Equal(t, "New York", fc.Features[0].Properties["PO_NAME"])
}

func TestMarshalJSON_RoundTripsFeatures(t *testing.T) {
	s := loadFixture(t)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Len(t, doc.Features, 3)
}
