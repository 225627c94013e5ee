package usecase

import "math"

// MinWorkedHours is recorded for a positive-length session whose worked time
// would otherwise round to nothing.
const MinWorkedHours = 0.01

// LeaveHoursPerDay is booked for every leave day in a week.
const LeaveHoursPerDay = 8

// Round2 rounds h to two decimal places.
func Round2(h float64) float64 {
	return math.Round(h*100) / 100
}

// WorkedHours computes the hours credited for a session given its raw elapsed
// time and accumulated pauses.
func WorkedHours(rawElapsed, paused float64) float64 {
	if rawElapsed <= 0 {
		return 0
	}
	w := rawElapsed - paused
	if w < MinWorkedHours {
		w = MinWorkedHours
	}
	return Round2(w)
}
