package utils

import "math"

// Precision is the number of decimal places coordinates are rounded to on
// ingestion, keeping loaded layers numerically consistent across sources.
var Precision = 7

// RoundCoord rounds a coordinate pair to Precision decimal places.
func RoundCoord(x float64, y float64) (float64, float64) {
	return RoundFloat(x, uint(Precision)), RoundFloat(y, uint(Precision))
}

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
