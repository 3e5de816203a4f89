package irrigation

import "fmt"

// AdviseTiming recommends when to irrigate. Rain defers irrigation entirely;
// otherwise the evapotranspiration tier narrows the acceptable windows.
//
// month is accepted for a future seasonal adjustment and does not affect the
// result today.
func AdviseTiming(temp, humidity float64, hour, month int, rainfall bool) TimingAdvice {
	_ = month

	if rainfall {
		return TimingAdvice{
			Description: "Defer irrigation (Rain expected)",
			Reasoning:   "Natural precipitation available",
		}
	}

	risk := EvapotranspirationRisk(temp, humidity)

	switch LevelOf(risk) {
	case RiskLow:
		return adviseLowRisk(risk, hour)
	case RiskModerate:
		return adviseModerateRisk(risk, hour)
	default:
		return adviseHighRisk(risk, hour)
	}
}

func adviseLowRisk(risk float64, hour int) TimingAdvice {
	switch {
	case inWindow(hour, 5, 8):
		return advice("Optimal time - Early Morning", hour,
			fmt.Sprintf("Low evaporation risk (ET score: %.1f), excellent absorption", risk))
	case inWindow(hour, 18, 21):
		return advice("Good time - Evening", hour,
			fmt.Sprintf("Low evaporation risk (ET score: %.1f), good absorption", risk))
	case hour < 5:
		return advice("Early Morning (5-8 AM) recommended", 6, "Current time too early, wait for sunrise")
	case inWindow(hour, 9, 17):
		return advice("Evening (6-9 PM) recommended", 18, "Avoid midday heat, wait for evening")
	default:
		return advice("Early Morning (5-8 AM) recommended", 6, "Late evening, schedule for next morning")
	}
}

func adviseModerateRisk(risk float64, hour int) TimingAdvice {
	switch {
	case inWindow(hour, 5, 7):
		return advice("Optimal time - Early Morning", hour,
			fmt.Sprintf("Moderate evaporation risk (ET score: %.1f), prioritize early irrigation", risk))
	case inWindow(hour, 19, 21):
		return advice("Acceptable time - Late Evening", hour,
			fmt.Sprintf("Moderate evaporation risk (ET score: %.1f), evening irrigation acceptable", risk))
	case hour < 5:
		return advice("Early Morning (5-7 AM) strongly recommended", 6, "Wait for optimal morning window")
	default:
		return advice("Early Morning (5-7 AM) strongly recommended", 6, "High evaporation risk during day, wait for morning")
	}
}

// adviseHighRisk only accepts irrigation starting inside the 05:00-06:00 slot.
func adviseHighRisk(risk float64, hour int) TimingAdvice {
	switch {
	case hour == 5:
		return advice("Critical - Early Morning Only", hour,
			fmt.Sprintf("High evaporation risk (ET score: %.1f), irrigate immediately", risk))
	case hour < 5:
		return advice("Critical - Early Morning (5-6 AM) ONLY", 5, "Extreme conditions, very narrow optimal window")
	default:
		return advice("Critical - Wait for Early Morning (5-6 AM)", 5,
			fmt.Sprintf("Extreme evaporation risk (ET score: %.1f), avoid all daytime irrigation", risk))
	}
}

func advice(description string, hour int, reasoning string) TimingAdvice {
	h := hour
	return TimingAdvice{
		Description: description,
		OptimalHour: &h,
		Reasoning:   reasoning,
	}
}

// inWindow reports whether hour lies in [from, to], both inclusive.
func inWindow(hour, from, to int) bool {
	return hour >= from && hour <= to
}
