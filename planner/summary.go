package planner

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one overlap run for reporting.
type Summary struct {
	Records   int     `json:"records"`
	TotalArea float64 `json:"totalArea"`
	MeanArea  float64 `json:"meanArea"`
	MaxArea   int     `json:"maxArea"`
}

// Summarize computes area statistics over a result collection.
func Summarize(records []OverlapRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	areas := make([]float64, len(records))
	for i, r := range records {
		areas[i] = float64(r.Amount)
	}
	return Summary{
		Records:   len(records),
		TotalArea: floats.Sum(areas),
		MeanArea:  stat.Mean(areas, nil),
		MaxArea:   int(floats.Max(areas)),
	}
}
