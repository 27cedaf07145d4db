// Package domain models the three New York City 2019 datasets analyzed by the
// collision ETL and the aggregates computed from them.
//
// # Data Sources
//
// Motor Vehicle Collisions - Crashes (NYC Open Data, h9gi-nx95), one row per
// police-reported crash. Median Incomes by zip code (Citizens' Committee for
// Children, data.cccnewyork.org). Pothole Map (NYC Open Data, wr97-8arm), one
// row per 311 pothole complaint. Zip-code boundaries come from a GeoJSON
// FeatureCollection whose features carry a ZIPCODE property.
//
// # Data Conventions
//
// Missing cells:
//
//	Every empty cell is replaced by the sentinel "Invalid" before filtering.
//	A required field that still holds the sentinel, or merely contains it,
//	excludes the row.
//
// Zip codes:
//
//	The collision export stores ZIP CODE as a float column when it has gaps,
//	so values arrive as "11207.0". A single trailing ".0" is stripped and the
//	remainder must be exactly five digits.
//
//	Income locations are labelled text such as "Zip Code 10451"; letters and
//	surrounding whitespace are removed to leave the digits.
//
// Dates:
//
//	CRASH DATE is MM/DD/YYYY. The month is its first component.
//	Created Date on pothole complaints is "MM/DD/YYYY hh:mm:ss AM"; the year
//	sits at characters 7-10.
//
// Contributing factors:
//
//	"Unspecified" is the NYPD placeholder for an unrecorded cause. Rows whose
//	first-vehicle factor contains it are excluded from every aggregate.
//
// # Drop Accounting
//
// Rows are never rejected with an error. Each excluded row is counted under a
// [DropReason] so a run can report how much of every dataset survived
// cleaning.
package domain
