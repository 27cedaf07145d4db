package domain

import "time"

// Sentinel replaces every missing cell before filtering.
const Sentinel = "Invalid"

// Collision source columns.
const (
	ColCrashDate = "CRASH DATE"
	ColZipCode   = "ZIP CODE"
	ColLatitude  = "LATITUDE"
	ColLongitude = "LONGITUDE"
	ColLocation  = "LOCATION"
	ColFactor    = "CONTRIBUTING FACTOR VEHICLE 1"
	ColInjured   = "NUMBER OF PERSONS INJURED"
	ColKilled    = "NUMBER OF PERSONS KILLED"
)

// DiscardedCollisionColumns are dropped from the collision table after filtering.
var DiscardedCollisionColumns = []string{
	"ON STREET NAME", "CROSS STREET NAME", "OFF STREET NAME",
	"CONTRIBUTING FACTOR VEHICLE 2", "CONTRIBUTING FACTOR VEHICLE 3",
	"CONTRIBUTING FACTOR VEHICLE 4", "CONTRIBUTING FACTOR VEHICLE 5",
	"VEHICLE TYPE CODE 1", "VEHICLE TYPE CODE 2", "VEHICLE TYPE CODE 3",
	"VEHICLE TYPE CODE 4", "VEHICLE TYPE CODE 5",
}

// Income source columns.
const (
	ColIncomeLocation = "Location"
	ColHouseholdType  = "Household Type"
	ColTimeFrame      = "TimeFrame"
	ColIncomeData     = "Data"
)

// DiscardedIncomeColumns are dropped from the income table after the
// missing-location filter.
var DiscardedIncomeColumns = []string{"Fips", "DataFormat"}

// Pothole source columns.
const (
	ColCreatedDate      = "Created Date"
	ColPotholeLatitude  = "Latitude"
	ColPotholeLongitude = "Longitude"
)

// AnalysisYear is the only year retained from the income and pothole data.
const AnalysisYear = 2019

// Substrings that select income rows: zip-code locations covering all
// household types.
const (
	ZipLocationMarker   = "Zip"
	AllHouseholdsMarker = "All"
)

// ZipSource records where a collision's zip code came from.
type ZipSource string

const (
	ZipFromRecord   ZipSource = "original"
	ZipFromBoundary ZipSource = "boundary"
	ZipFromMapbox   ZipSource = "mapbox"
)

// RawCollision holds the retained collision columns as text, after missing
// cells were replaced by [Sentinel].
type RawCollision struct {
	CrashDate string
	ZipCode   string
	Latitude  string
	Longitude string
	Location  string
	Factor    string
	Injured   string
	Killed    string
}

// Collision is a cleaned, typed collision record.
type Collision struct {
	Date      time.Time `json:"date"`
	Month     int       `json:"month"`
	ZipCode   string    `json:"zip_code"`
	Geo       Geo       `json:"geo"`
	Location  string    `json:"location"`
	Factor    string    `json:"factor"`
	Injured   int       `json:"injured"`
	Killed    int       `json:"killed"`
	ZipSource ZipSource `json:"zip_source"`
}

// RawIncome holds the retained income columns as text.
type RawIncome struct {
	Location      string
	HouseholdType string
	TimeFrame     string
	Data          string
}

// Income is a cleaned median-income record for one zip code.
type Income struct {
	ZipCode   string `json:"zip_code"`
	Household string `json:"household_type"`
	Year      int    `json:"year"`
	Income    int    `json:"income"`
}

// RawPothole holds the retained pothole columns as text.
type RawPothole struct {
	CreatedDate string
	Latitude    string
	Longitude   string
}

// Pothole is a cleaned pothole complaint.
type Pothole struct {
	Created time.Time `json:"created"`
	Geo     Geo       `json:"geo"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Mappable reports whether g is a real position. The collision export writes
// 0 for either axis when a crash was never geocoded.
func (g Geo) Mappable() bool {
	return g.Lat != 0 && g.Lon != 0
}

// RawTables is the output of extraction: frame-level filtering has run, typed
// coercion has not.
type RawTables struct {
	Collisions     []RawCollision
	Incomes        []RawIncome
	Potholes       []RawPothole
	CollisionStats TableStats
	IncomeStats    TableStats
	PotholeStats   TableStats
}

// Tables holds the cleaned, typed datasets.
type Tables struct {
	Collisions     []Collision
	Incomes        []Income
	Potholes       []Pothole
	CollisionStats TableStats
	IncomeStats    TableStats
	PotholeStats   TableStats
}
