package astro

import (
	"time"

	"github.com/Tiliavir/astro-journal/internal/model"
)

// Assemble computes a fresh snapshot for t. Retrograde motion is not modelled
// locally, so Retrogrades is always empty.
func Assemble(t time.Time) (model.PlanetaryInfo, error) {
	day, hour, err := DayAndHour(t)
	if err != nil {
		return model.PlanetaryInfo{}, err
	}
	pos := Positions(t)
	return model.PlanetaryInfo{
		PlanetaryDay:  day,
		PlanetaryHour: hour,
		SunSign:       SignFor(pos.Sun),
		MoonSign:      SignFor(pos.Moon),
		MoonPhase:     PhaseFor(pos.Sun, pos.Moon),
		Retrogrades:   []model.Planet{},
		LocationName:  "",
	}, nil
}

// Compute is Assemble with an opaque location label attached.
func Compute(t time.Time, locationHint string) (model.PlanetaryInfo, error) {
	info, err := Assemble(t)
	if err != nil {
		return model.PlanetaryInfo{}, err
	}
	info.LocationName = locationHint
	return info, nil
}
