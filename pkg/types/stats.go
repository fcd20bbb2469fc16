package types

import "math"

// CollectionStats summarizes an ownership bitmap.
type CollectionStats struct {
	Total      int `json:"total"`
	Owned      int `json:"owned"`
	Missing    int `json:"missing"`
	Percentage int `json:"percentage"`
}

// Stats derives completion statistics from an ownership bitmap. Percentage
// is rounded to the nearest integer and is 0 for an empty bitmap.
func Stats(owned []bool) CollectionStats {
	s := CollectionStats{Total: len(owned)}
	for _, v := range owned {
		if v {
			s.Owned++
		}
	}
	s.Missing = s.Total - s.Owned
	if s.Total > 0 {
		s.Percentage = int(math.Round(float64(s.Owned) / float64(s.Total) * 100))
	}
	return s
}

// Complete reports whether every issue is owned. Percentage alone is not
// used because rounding reports 100 for e.g. 199 of 200.
func (s CollectionStats) Complete() bool {
	return s.Total > 0 && s.Missing == 0
}
