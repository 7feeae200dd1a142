// Package astro computes the astrological context of an instant: planetary
// day and hour, Sun and Moon signs and a coarse moon phase.
//
// The positions are a mean-motion approximation measured from the J2000
// epoch. They ignore the equation of centre, nutation, perturbations and leap
// seconds and can be off by several degrees; they are good enough to label a
// journal entry, not to cast a chart.
package astro

import (
	"math"
	"time"
)

// Epoch is the reference instant for the mean longitudes (J2000.0).
var Epoch = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

const (
	msPerDay = 86_400_000

	sunLongitudeAtEpoch  = 280.46
	moonLongitudeAtEpoch = 218.32

	// Mean daily motion in degrees.
	sunMeanMotion  = 360 / 365.2422
	moonMeanMotion = 13.176396
)

// Position holds ecliptic longitudes in degrees, each in [0, 360).
type Position struct {
	Sun  float64
	Moon float64
}

// DaysSinceEpoch returns the real-valued number of days between Epoch and t.
func DaysSinceEpoch(t time.Time) float64 {
	return float64(t.Sub(Epoch).Milliseconds()) / msPerDay
}

// Positions returns the mean ecliptic longitudes of the Sun and Moon at t.
func Positions(t time.Time) Position {
	d := DaysSinceEpoch(t)
	return Position{
		Sun:  Normalize(sunLongitudeAtEpoch + d*sunMeanMotion),
		Moon: Normalize(moonLongitudeAtEpoch + d*moonMeanMotion),
	}
}

// Normalize folds an angle in degrees into [0, 360).
func Normalize(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// A tiny negative remainder rounds up to exactly 360 after the shift.
	if r >= 360 {
		r = 0
	}
	return r
}
