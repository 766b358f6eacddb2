package appraisal

import "math"

// RatingSample is one manager rating on a rating-type question together with
// the maximum the question allows (5 or 10).
type RatingSample struct {
	Value int
	Max   int
}

// SuggestedScore converts manager ratings into a percentage, rounded to one
// decimal place. No ratings yields zero.
func SuggestedScore(samples []RatingSample) float64 {
	totalPoints := 0
	maxPoints := 0
	for _, sample := range samples {
		if sample.Max <= 0 {
			continue
		}
		totalPoints += sample.Value
		maxPoints += sample.Max
	}
	if maxPoints == 0 {
		return 0
	}
	score := float64(totalPoints) / float64(maxPoints) * 100
	return math.Round(score*10) / 10
}

// GradeFor maps a percentage score to the final grade band.
func GradeFor(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 75:
		return "B+"
	case score >= 60:
		return "B"
	case score >= 50:
		return "B-"
	default:
		return "C"
	}
}
