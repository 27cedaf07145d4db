package domain

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// zipRe matches a five-digit US zip code.
var zipRe = regexp.MustCompile(`^\d{5}$`)

var errNotFinite = errors.New("not a finite number")

const (
	crashDateLayout   = "01/02/2006"
	createdDateLayout = "01/02/2006 03:04:05 PM"
)

// ParseCollision coerces a raw collision row into a typed record.
// A non-empty reason means the row must be excluded. When the only problem is
// a missing zip code the returned Collision is otherwise complete, so a
// caller with a ZipResolver can still recover it (see BackfillZip).
func ParseCollision(raw RawCollision) (Collision, DropReason) {
	lat, errLat := parseCoordinate(raw.Latitude)
	lon, errLon := parseCoordinate(raw.Longitude)
	if errLat != nil || errLon != nil {
		return Collision{}, ReasonInvalidCoordinates
	}

	date, month, ok := parseCrashDate(raw.CrashDate)
	if !ok {
		return Collision{}, ReasonInvalidDate
	}

	c := Collision{
		Date:     date,
		Month:    month,
		Geo:      Geo{Lat: lat, Lon: lon},
		Location: strings.TrimSpace(raw.Location),
		Factor:   strings.TrimSpace(raw.Factor),
		Injured:  parseCountOrZero(raw.Injured),
		Killed:   parseCountOrZero(raw.Killed),
	}

	if isMissing(raw.ZipCode) {
		return c, ReasonMissingZip
	}
	zip, ok := NormalizeZip(raw.ZipCode)
	if !ok {
		return Collision{}, ReasonInvalidZip
	}
	c.ZipCode = zip
	c.ZipSource = ZipFromRecord
	return c, ""
}

// ParseIncome coerces a raw income row into a typed record.
func ParseIncome(raw RawIncome) (Income, DropReason) {
	zip, ok := NormalizeZip(stripLetters(raw.Location))
	if !ok {
		return Income{}, ReasonInvalidZip
	}

	// Ranges such as "2015-2019" count toward the year they end in.
	if !strings.Contains(raw.TimeFrame, strconv.Itoa(AnalysisYear)) {
		return Income{}, ReasonWrongYear
	}

	value, ok := parseIncomeValue(raw.Data)
	if !ok {
		return Income{}, ReasonInvalidIncome
	}

	return Income{
		ZipCode:   zip,
		Household: strings.TrimSpace(raw.HouseholdType),
		Year:      AnalysisYear,
		Income:    value,
	}, ""
}

// ParsePothole coerces a raw pothole row into a typed record.
func ParsePothole(raw RawPothole) (Pothole, DropReason) {
	lat, errLat := parseCoordinate(raw.Latitude)
	lon, errLon := parseCoordinate(raw.Longitude)
	if errLat != nil || errLon != nil {
		return Pothole{}, ReasonInvalidCoordinates
	}

	// The year filter already ran on the text; a timestamp that does not
	// parse keeps the row with a zero Created time.
	created, _ := time.Parse(createdDateLayout, strings.TrimSpace(raw.CreatedDate))

	return Pothole{Created: created, Geo: Geo{Lat: lat, Lon: lon}}, ""
}

// NormalizeZip strips a single trailing ".0" float artifact and surrounding
// whitespace, and reports whether the rest is a five-digit zip code.
func NormalizeZip(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if !zipRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// CreatedYear returns the year text of a pothole Created Date, which sits at
// characters 7-10 of "MM/DD/YYYY ...". Short values return "".
func CreatedYear(created string) string {
	if len(created) < 10 {
		return ""
	}
	return created[6:10]
}

func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.Contains(s, Sentinel)
}

// parseCoordinate parses a latitude or longitude. Zero is accepted here; see
// Geo.Mappable.
func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// parseCrashDate parses an MM/DD/YYYY date. When the full date is malformed but
// the leading month component is a valid month, the month is still returned.
func parseCrashDate(s string) (time.Time, int, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(crashDateLayout, s); err == nil {
		return t, int(t.Month()), true
	}

	head, _, _ := strings.Cut(s, "/")
	month, err := strconv.Atoi(head)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, 0, false
	}
	return time.Time{}, month, true
}

// parseCountOrZero parses a person count. Missing or malformed values count as
// zero; float-encoded integers ("2.0") are accepted.
func parseCountOrZero(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

// parseIncomeValue parses the Data column, truncating decimals the way an
// integer cast does.
func parseIncomeValue(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func stripLetters(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return -1
		}
		return r
	}, s))
}
