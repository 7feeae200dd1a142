package astro

import (
	"time"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

// Sunrise and sunset are fixed local clock times rather than real solar
// events, so every day and every night lasts twelve wall-clock hours
// (except across DST transitions).
const (
	SunriseHour = 6
	SunsetHour  = 18

	hoursPerPeriod = 12
)

// dayRulers maps time.Weekday (Sunday=0) to the ruling planet of the day.
var dayRulers = [7]model.Planet{
	model.Sun, model.Moon, model.Mars, model.Mercury,
	model.Jupiter, model.Venus, model.Saturn,
}

// ChaldeanOrder is the descending order of apparent planetary speed used to
// rotate hour rulers.
var ChaldeanOrder = []model.Planet{
	model.Saturn, model.Jupiter, model.Mars, model.Sun,
	model.Venus, model.Mercury, model.Moon,
}

// PlanetaryHour describes the planetary hour containing an instant.
type PlanetaryHour struct {
	// Index is 0..11 within the current day or night period.
	Index int
	// Daytime is true between sunrise and sunset.
	Daytime bool
	Start   time.Time
	End     time.Time
	Ruler   model.Planet
}

// DayRuler returns the planet ruling the local calendar day of t.
func DayRuler(t time.Time) model.Planet {
	return dayRulers[t.Weekday()]
}

// DayAndHour returns the planetary day and planetary hour rulers for t,
// evaluated on t's own location.
func DayAndHour(t time.Time) (model.Planet, model.Planet, error) {
	h, err := HourOf(t)
	if err != nil {
		return "", "", err
	}
	return DayRuler(t), h.Ruler, nil
}

// HourOf locates t within its day or night period and resolves the ruler of
// that planetary hour.
func HourOf(t time.Time) (PlanetaryHour, error) {
	start, end, daytime := period(t)

	periodMs := end.Sub(start).Milliseconds()
	elapsedMs := t.Sub(start).Milliseconds()
	idx := int(elapsedMs * hoursPerPeriod / periodMs)
	idx = min(max(idx, 0), hoursPerPeriod-1)

	day := DayRuler(t)
	base := chaldeanIndex(day)
	if base < 0 {
		return PlanetaryHour{}, &ComputationError{
			Op:  "planetary hour",
			Msg: "day ruler " + string(day) + " is not in the Chaldean order",
		}
	}

	span := end.Sub(start)
	return PlanetaryHour{
		Index:   idx,
		Daytime: daytime,
		Start:   start.Add(span * time.Duration(idx) / hoursPerPeriod),
		End:     start.Add(span * time.Duration(idx+1) / hoursPerPeriod),
		Ruler:   ChaldeanOrder[(base+idx)%len(ChaldeanOrder)],
	}, nil
}

// period returns the bounds of the day or night containing t. Daytime is
// [sunrise, sunset); a night runs from a sunset to the following sunrise.
func period(t time.Time) (start, end time.Time, daytime bool) {
	sunrise := timecalc.ClockOn(t, 0, SunriseHour)
	sunset := timecalc.ClockOn(t, 0, SunsetHour)

	switch {
	case t.Before(sunrise):
		return timecalc.ClockOn(t, -1, SunsetHour), sunrise, false
	case t.Before(sunset):
		return sunrise, sunset, true
	default:
		return sunset, timecalc.ClockOn(t, 1, SunriseHour), false
	}
}

func chaldeanIndex(p model.Planet) int {
	for i, c := range ChaldeanOrder {
		if c == p {
			return i
		}
	}
	return -1
}
