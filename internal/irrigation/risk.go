package irrigation

import "math"

// RiskLevel is the evapotranspiration tier used by the Timing Advisor.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// EvapotranspirationRisk is a linear proxy for water loss: it grows above a
// 20°C baseline and as humidity drops. Never negative.
func EvapotranspirationRisk(temp, humidity float64) float64 {
	return math.Max(0, (temp-20)*0.1+(100-humidity)*0.05)
}

// LevelOf maps a risk score to its tier.
func LevelOf(risk float64) RiskLevel {
	switch {
	case risk < 2:
		return RiskLow
	case risk < 4:
		return RiskModerate
	default:
		return RiskHigh
	}
}
