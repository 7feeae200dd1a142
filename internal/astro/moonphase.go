package astro

import "github.com/Tiliavir/astro-journal/internal/model"

// PhaseFor classifies the Moon as waxing or waning from its elongation east
// of the Sun. Separations of exactly 0° (new) and 180° (full) count as Waning.
func PhaseFor(sunLongitude, moonLongitude float64) model.MoonPhase {
	sep := Separation(sunLongitude, moonLongitude)
	if sep == 0 || sep == 180 {
		return model.Waning
	}
	if sep < 180 {
		return model.Waxing
	}
	return model.Waning
}

// Separation returns the Moon's elongation from the Sun in [0, 360).
func Separation(sunLongitude, moonLongitude float64) float64 {
	return Normalize(moonLongitude - sunLongitude)
}
