package render

import "strconv"

// ChoroplethThresholds are the fixed collision-count bin edges.
var ChoroplethThresholds = []int{0, 300, 600, 900, 1200, 1500, 1800, 2100}

// Reds is the seven-class ColorBrewer "Reds" scheme, one color per bin.
var Reds = []string{"#fee5d9", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#99000d"}

// NoDataColor fills zip polygons that have no collisions on record.
const NoDataColor = "#bdbdbd"

// Bin returns the palette index for a collision count. Counts above the last
// threshold fall in the top bin.
func Bin(count int) int {
	for i := len(Reds) - 1; i > 0; i-- {
		if count >= ChoroplethThresholds[i] {
			return i
		}
	}
	return 0
}

// BinColor returns the fill color for a collision count.
func BinColor(count int) string {
	return Reds[Bin(count)]
}

type legendBin struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

func legend() []legendBin {
	out := make([]legendBin, len(Reds))
	for i := range Reds {
		lo, hi := ChoroplethThresholds[i], ChoroplethThresholds[i+1]
		label := strconv.Itoa(lo) + " - " + strconv.Itoa(hi)
		if i == len(Reds)-1 {
			label = strconv.Itoa(lo) + "+"
		}
		out[i] = legendBin{Color: Reds[i], Label: label}
	}
	return out
}
