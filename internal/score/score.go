// Package score computes the normalized shame score.
package score

// Bounds of the published score.
const (
	Min = 0.0
	Max = 10.0
)

// Shame converts weighted downtime into a 0-10 rate.
//
// The division by operatingHours is what keeps the score a rate: a
// park with a constant hourly shame of 1.0 scores 1.0 over an hour, a
// day, or a month. Dropping it would turn the score into an
// accumulator that grows with the window.
func Shame(weightedDowntimeHours, effectiveParkWeight, operatingHours float64) float64 {
	denominator := effectiveParkWeight * operatingHours
	if denominator <= 0 {
		return Min
	}
	value := (weightedDowntimeHours / denominator) * Max
	if value < Min {
		return Min
	}
	if value > Max {
		return Max
	}
	return value
}
