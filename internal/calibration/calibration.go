// Package calibration accumulates (angle, steps) sightings for one motor
// axis and estimates steps-per-revolution from them by taking the median
// of every pairwise candidate, the same robust-to-bad-sightings approach
// the original controller's stop_calibration used.
package calibration

import "sort"

// Sample is one sighting of a known body: the motor's angle and cumulative
// step count at the moment the user confirmed the sighting.
type Sample struct {
	Angle float64
	Steps int64
}

// Estimator accumulates samples for a single axis.
type Estimator struct {
	samples []Sample
}

// New returns an empty estimator.
func New() *Estimator {
	return &Estimator{}
}

// Add appends a sighting.
func (e *Estimator) Add(angle float64, steps int64) {
	e.samples = append(e.samples, Sample{Angle: angle, Steps: steps})
}

// Reset clears all accumulated samples, as start_calibration does.
func (e *Estimator) Reset() {
	e.samples = nil
}

// Count returns the number of accumulated samples.
func (e *Estimator) Count() int {
	return len(e.samples)
}

// Samples returns a copy of the accumulated (angle, steps) sightings, in
// the order they were added.
func (e *Estimator) Samples() []Sample {
	out := make([]Sample, len(e.samples))
	copy(out, e.samples)
	return out
}

// Ready reports whether at least two samples exist, the minimum needed
// for one pairwise candidate.
func (e *Estimator) Ready() bool {
	return len(e.samples) >= 2
}

// Estimate returns the median of every pairwise steps-per-revolution
// candidate. Pairs whose angle delta is zero are skipped. ok is false
// when fewer than 2 samples exist or every pair was skipped.
func (e *Estimator) Estimate() (sprEstimate int, ok bool) {
	if !e.Ready() {
		return 0, false
	}

	var candidates []float64
	for i := 0; i < len(e.samples); i++ {
		for j := i + 1; j < len(e.samples); j++ {
			deltaSteps := float64(e.samples[j].Steps - e.samples[i].Steps)
			deltaAngle := e.samples[j].Angle - e.samples[i].Angle

			if sign(deltaSteps) != sign(deltaAngle) {
				if deltaAngle > 0 {
					deltaAngle -= 360
				} else {
					deltaAngle += 360
				}
			}

			if deltaAngle == 0 {
				continue
			}

			candidates = append(candidates, 360.0*deltaSteps/deltaAngle)
		}
	}

	if len(candidates) == 0 {
		return 0, false
	}

	sort.Float64s(candidates)
	return int(median(candidates)), true
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
