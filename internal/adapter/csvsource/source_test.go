package csvsource

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/nyc-collision-etl/internal/config"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestReadCollisions(t *testing.T) {
	rows, stats, err := ReadCollisions(openFixture(t, "collisions.csv"), false)
	require.NoError(t, err)

	want := []domain.RawCollision{
		{
			CrashDate: "01/15/2019", ZipCode: "11201", Latitude: "40.6959", Longitude: "-73.9900",
			Location: "(40.6959, -73.99)", Factor: "Driver Inattention/Distraction", Injured: "1", Killed: "0",
		},
		{
			CrashDate: "01/20/2019", ZipCode: "11201.0", Latitude: "40.6960", Longitude: "-73.9901",
			Location: "(40.696, -73.9901)", Factor: "Following Too Closely", Injured: "0", Killed: "0",
		},
		{
			CrashDate: "05/12/2019", ZipCode: "10001", Latitude: "40.7505", Longitude: "-73.9975",
			Location: "(40.7505, -73.9975)", Factor: "Passing or Lane Usage Improper", Injured: domain.Sentinel, Killed: "0",
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("collisions mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 8, stats.Read)
	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, map[domain.DropReason]int{
		domain.ReasonUnspecifiedFactor:  1,
		domain.ReasonMissingFactor:      1,
		domain.ReasonMissingCoordinates: 1,
		domain.ReasonMissingLocation:    1,
		domain.ReasonMissingZip:         1,
	}, stats.Dropped)
	assert.Equal(t, stats.Read, stats.Kept+stats.TotalDropped())
}

func TestReadCollisions_NoRequiredFieldMissing(t *testing.T) {
	rows, _, err := ReadCollisions(openFixture(t, "collisions.csv"), false)
	require.NoError(t, err)

	for _, r := range rows {
		for _, v := range []string{r.ZipCode, r.Latitude, r.Longitude, r.Factor, r.Location} {
			assert.NotContains(t, v, domain.Sentinel)
		}
		assert.NotContains(t, r.Factor, "Unspecified")
	}
}

func TestReadCollisions_KeepMissingZip(t *testing.T) {
	rows, stats, err := ReadCollisions(openFixture(t, "collisions.csv"), true)
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, domain.Sentinel, rows[2].ZipCode)
	assert.Equal(t, "Unsafe Speed", rows[2].Factor)
	assert.Zero(t, stats.Dropped[domain.ReasonMissingZip])
	assert.Equal(t, 4, stats.Kept)
}

func TestReadCollisions_MissingColumn(t *testing.T) {
	csv := "CRASH DATE,LATITUDE,LONGITUDE,LOCATION,CONTRIBUTING FACTOR VEHICLE 1,NUMBER OF PERSONS INJURED,NUMBER OF PERSONS KILLED\n" +
		"01/01/2019,40.7,-73.9,\"(40.7, -73.9)\",Unsafe Speed,0,0\n"

	_, _, err := ReadCollisions(strings.NewReader(csv), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ColZipCode)
}

func TestReadCollisions_AllRowsFiltered(t *testing.T) {
	csv := "CRASH DATE,ZIP CODE,LATITUDE,LONGITUDE,LOCATION,CONTRIBUTING FACTOR VEHICLE 1,NUMBER OF PERSONS INJURED,NUMBER OF PERSONS KILLED\n" +
		"01/01/2019,10001,40.75,-73.99,\"(40.75, -73.99)\",Unspecified,0,0\n" +
		"01/02/2019,10002,40.71,-73.98,\"(40.71, -73.98)\",Unspecified,1,0\n"

	rows, stats, err := ReadCollisions(strings.NewReader(csv), false)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 2, stats.Dropped[domain.ReasonUnspecifiedFactor])
	assert.Equal(t, 0, stats.Kept)
}

func TestReadIncomes(t *testing.T) {
	rows, stats, err := ReadIncomes(openFixture(t, "incomes.csv"))
	require.NoError(t, err)

	want := []domain.RawIncome{
		{Location: "Zip Code 11201", HouseholdType: "All Households", TimeFrame: "2019", Data: "95000"},
		{Location: "Zip Code 10451", HouseholdType: "All Households", TimeFrame: "2019", Data: "25000.75"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("incomes mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 6, stats.Read)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, map[domain.DropReason]int{
		domain.ReasonMissingLocation:  1,
		domain.ReasonNotZipLocation:   1,
		domain.ReasonNotAllHouseholds: 1,
		domain.ReasonWrongYear:        1,
	}, stats.Dropped)
}

func TestReadPotholes(t *testing.T) {
	rows, stats, err := ReadPotholes(openFixture(t, "potholes.csv"))
	require.NoError(t, err)

	want := []domain.RawPothole{
		{CreatedDate: "01/05/2019 08:15:00 AM", Latitude: "40.71", Longitude: "-74.00"},
		{CreatedDate: "07/04/2019 09:00:00 PM", Latitude: "40.74", Longitude: "-73.97"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("potholes mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 5, stats.Read)
	assert.Equal(t, map[domain.DropReason]int{
		domain.ReasonWrongYear:          1,
		domain.ReasonMissingCoordinates: 2,
	}, stats.Dropped)
}

func TestSource_Extract(t *testing.T) {
	cfg := &config.Config{
		CollisionsPath: filepath.Join("testdata", "collisions.csv"),
		IncomesPath:    filepath.Join("testdata", "incomes.csv"),
		PotholesPath:   filepath.Join("testdata", "potholes.csv"),
		ZipBackfill:    config.BackfillNone,
	}
	src := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tables, err := src.Extract(context.Background())
	require.NoError(t, err)

	assert.Len(t, tables.Collisions, 3)
	assert.Len(t, tables.Incomes, 2)
	assert.Len(t, tables.Potholes, 2)
	assert.Equal(t, 8, tables.CollisionStats.Read)
	assert.Equal(t, 6, tables.IncomeStats.Read)
	assert.Equal(t, 5, tables.PotholeStats.Read)
}

func TestSource_Extract_MissingFile(t *testing.T) {
	cfg := &config.Config{
		CollisionsPath: filepath.Join("testdata", "collisions.csv"),
		IncomesPath:    filepath.Join("testdata", "does-not-exist.csv"),
		PotholesPath:   filepath.Join("testdata", "potholes.csv"),
	}
	src := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := src.Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open incomes csv")
}

func TestSource_Extract_CancelledContext(t *testing.T) {
	cfg := &config.Config{
		CollisionsPath: filepath.Join("testdata", "collisions.csv"),
		IncomesPath:    filepath.Join("testdata", "incomes.csv"),
		PotholesPath:   filepath.Join("testdata", "potholes.csv"),
	}
	src := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Extract(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
