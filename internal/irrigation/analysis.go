package irrigation

// HourSlot describes irrigation suitability for one hour of the day.
type HourSlot struct {
	Hour           int     `json:"hour"`
	Period         string  `json:"period"`
	Efficiency     float64 `json:"efficiency"`
	Recommendation string  `json:"recommendation"`
}

// Loss is the share of applied water expected to be lost at this hour.
func (s HourSlot) Loss() float64 {
	return 1 - s.Efficiency
}

// DailyAnalysis is a 24-hour efficiency profile under fixed weather.
type DailyAnalysis struct {
	Temperature            float64    `json:"temperature"`
	Humidity               float64    `json:"humidity"`
	EvapotranspirationRisk float64    `json:"evapotranspiration_risk"`
	RiskLevel              RiskLevel  `json:"risk_level"`
	Hours                  []HourSlot `json:"hours"`
}

// BestTimes and AvoidTimes summarise the static daily windows.
var (
	BestTimes = []string{
		"05:00-08:00 (Early Morning) - Highest efficiency",
		"18:00-21:00 (Evening) - Good alternative",
		"22:00-04:00 (Night) - Acceptable for urgent needs",
	}
	AvoidTimes = []string{
		"11:00-16:00 (Midday) - High evaporation losses",
	}
)

// AnalyzeDay evaluates every hour of the day for the given weather.
func AnalyzeDay(temp, humidity float64) DailyAnalysis {
	risk := EvapotranspirationRisk(temp, humidity)
	hours := make([]HourSlot, 0, 24)

	for hour := 0; hour < 24; hour++ {
		eff := Efficiency(hour, temp, humidity)
		slot := HourSlot{Hour: hour, Efficiency: round(eff, 3)}

		switch {
		case inWindow(hour, 5, 8):
			slot.Period, slot.Recommendation = "Early Morning", "Optimal"
		case inWindow(hour, 18, 21):
			slot.Period, slot.Recommendation = "Evening", "Good"
		case inWindow(hour, 9, 17):
			slot.Period = "Midday"
			if eff < 0.5 {
				slot.Recommendation = "Avoid"
			} else {
				slot.Recommendation = "Acceptable"
			}
		default:
			slot.Period, slot.Recommendation = "Night", "Acceptable"
		}

		hours = append(hours, slot)
	}

	return DailyAnalysis{
		Temperature:            temp,
		Humidity:               humidity,
		EvapotranspirationRisk: round(risk, 2),
		RiskLevel:              LevelOf(risk),
		Hours:                  hours,
	}
}
