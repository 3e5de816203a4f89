package irrigation

import "math"

// hourlyEfficiency holds the base share of water retained when irrigating at
// a given hour, following the typical daily evaporation curve.
var hourlyEfficiency = [24]float64{
	0.85, 0.85, 0.85, 0.85, 0.85, // 00-04
	0.95, 0.95, 0.90, 0.80, 0.70, // 05-09
	0.60, 0.50, 0.40, 0.35, 0.35, // 10-14
	0.40, 0.45, 0.55, 0.70, 0.80, // 15-19
	0.85, 0.85, 0.85, 0.85, // 20-23
}

const unknownHourEfficiency = 0.5

// Efficiency estimates the fraction of applied water retained by the soil
// when irrigating at hour under the given weather. The result is clamped to [0,1].
func Efficiency(hour int, temp, humidity float64) float64 {
	base := unknownHourEfficiency
	if hour >= 0 && hour < len(hourlyEfficiency) {
		base = hourlyEfficiency[hour]
	}

	// 2% loss per degree above 25°C.
	tempAdj := math.Max(0, 1-(temp-25)*0.02)
	// 0.8 when bone dry, 1.0 when saturated.
	humidityAdj := 0.8 + (humidity/100)*0.2

	return clamp01(base * tempAdj * humidityAdj)
}

// RatingOf buckets an efficiency score. Thresholds are strict, so boundary
// values fall into the lower bucket.
func RatingOf(eff float64) Rating {
	switch {
	case eff > 0.8:
		return RatingExcellent
	case eff > 0.6:
		return RatingGood
	case eff > 0.4:
		return RatingFair
	default:
		return RatingPoor
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
