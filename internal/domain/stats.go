package domain

import "sort"

// DropReason names why a row was excluded during cleaning.
type DropReason string

const (
	ReasonUnspecifiedFactor  DropReason = "unspecified_factor"
	ReasonMissingFactor      DropReason = "missing_factor"
	ReasonMissingCoordinates DropReason = "missing_coordinates"
	ReasonMissingLocation    DropReason = "missing_location"
	ReasonMissingZip         DropReason = "missing_zip"
	ReasonInvalidZip         DropReason = "invalid_zip"
	ReasonInvalidCoordinates DropReason = "invalid_coordinates"
	ReasonInvalidDate        DropReason = "invalid_date"
	ReasonNotZipLocation     DropReason = "not_zip_location"
	ReasonNotAllHouseholds   DropReason = "not_all_households"
	ReasonWrongYear          DropReason = "wrong_year"
	ReasonInvalidIncome      DropReason = "invalid_income"
)

// TableStats tracks how many rows of one dataset were read, kept and dropped.
type TableStats struct {
	Read    int                `json:"read"`
	Kept    int                `json:"kept"`
	Dropped map[DropReason]int `json:"dropped,omitempty"`
}

// Drop records n rows excluded for reason.
func (s *TableStats) Drop(reason DropReason, n int) {
	if n <= 0 {
		return
	}
	if s.Dropped == nil {
		s.Dropped = make(map[DropReason]int)
	}
	s.Dropped[reason] += n
}

// TotalDropped sums every drop reason.
func (s TableStats) TotalDropped() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Reasons returns the recorded drop reasons in lexical order.
func (s TableStats) Reasons() []DropReason {
	reasons := make([]DropReason, 0, len(s.Dropped))
	for r := range s.Dropped {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}

// Clone returns a deep copy so later stages can add drops without aliasing.
func (s TableStats) Clone() TableStats {
	out := TableStats{Read: s.Read, Kept: s.Kept}
	for r, n := range s.Dropped {
		out.Drop(r, n)
	}
	return out
}
