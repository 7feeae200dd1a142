// Package timeline turns pairs of planetary snapshots into change events.
// Everything here is pure: callers own the previous snapshot and the set of
// event IDs already persisted.
package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

// ErrStaleComparison is returned when two moon phases come from different
// vocabularies and cannot be compared.
var ErrStaleComparison = errors.New("stale comparison: moon phase vocabularies differ")

// IDSet holds the IDs of events that already exist.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts the IDs of events into the set.
func (s IDSet) Add(events ...model.ChangeEvent) {
	for _, ev := range events {
		s[ev.Header().ID] = struct{}{}
	}
}

// Detect compares two snapshots and returns one event per changed field,
// in the order day, hour, sun sign, moon sign, moon phase. Candidates whose
// ID is already in existing are skipped. Each event is stamped with now.
func Detect(prev, next model.PlanetaryInfo, now time.Time, existing IDSet) []model.ChangeEvent {
	var out []model.ChangeEvent
	emit := func(ev model.ChangeEvent) {
		if !existing.Has(ev.Header().ID) {
			out = append(out, ev)
		}
	}

	date := timecalc.ISODate(now)

	if prev.PlanetaryDay != next.PlanetaryDay {
		emit(model.DayChange{
			EventHeader: header(model.KindDayChange, "daychange-"+date, now,
				fmt.Sprintf("Planetary Day: %s Rules", next.PlanetaryDay),
				fmt.Sprintf("A new day dawns, ruled by the energies of %s. This influences the general mood and focus of the day.", next.PlanetaryDay)),
			FromPlanet: prev.PlanetaryDay,
			ToPlanet:   next.PlanetaryDay,
		})
	}

	if prev.PlanetaryHour != next.PlanetaryHour {
		emit(model.HourChange{
			EventHeader: header(model.KindHourChange, "hourchange-"+timecalc.ISODateHour(now), now,
				fmt.Sprintf("Planetary Hour: %s Begins", next.PlanetaryHour),
				fmt.Sprintf("The cosmic influence shifts as the hour of %s begins, lasting for approximately one hour.", next.PlanetaryHour)),
			FromPlanet: prev.PlanetaryHour,
			ToPlanet:   next.PlanetaryHour,
		})
	}

	if prev.SunSign != next.SunSign {
		emit(model.SunSignChange{
			EventHeader: header(model.KindSunSignChange, "sunsignchange-"+date, now,
				fmt.Sprintf("Sun Sign Shift: Welcome %s", next.SunSign),
				fmt.Sprintf("The Sun has moved from %s to %s, shifting the collective focus.", prev.SunSign, next.SunSign)),
			FromSign: prev.SunSign,
			ToSign:   next.SunSign,
		})
	}

	if prev.MoonSign != next.MoonSign {
		emit(model.MoonSignChange{
			EventHeader: header(model.KindMoonSignChange, transitionID("moonsignchange", string(prev.MoonSign), string(next.MoonSign), date), now,
				fmt.Sprintf("Lunar Shift: Moon in %s", next.MoonSign),
				fmt.Sprintf("The Moon enters %s from %s, influencing our emotional landscape and subconscious currents.", next.MoonSign, prev.MoonSign)),
			FromSign: prev.MoonSign,
			ToSign:   next.MoonSign,
		})
	}

	if changed, err := PhaseChanged(prev.MoonPhase, next.MoonPhase); err == nil && changed {
		emit(model.MoonPhaseChange{
			EventHeader: header(model.KindMoonPhaseChange, transitionID("moonphasechange", string(prev.MoonPhase), string(next.MoonPhase), date), now,
				fmt.Sprintf("Lunar Phase: Now %s", next.MoonPhase),
				fmt.Sprintf("The lunar cycle transitions. The Moon is now in its %s phase, affecting our energy for initiation and reflection.", next.MoonPhase)),
			FromPhase: prev.MoonPhase,
			ToPhase:   next.MoonPhase,
		})
	}

	return out
}

// PhaseChanged compares two moon phases. Phases from different vocabularies
// (or unrecognised names) yield ErrStaleComparison and count as unchanged.
func PhaseChanged(prev, next model.MoonPhase) (bool, error) {
	pv, nv := prev.Vocabulary(), next.Vocabulary()
	if pv == model.VocabularyUnknown || pv != nv {
		if prev == next {
			return false, nil
		}
		return false, fmt.Errorf("%w: %q vs %q", ErrStaleComparison, prev, next)
	}
	return prev != next, nil
}

// Retrograde returns the retrograde marker for the calendar date of entryDate
// when info lists retrograde planets and the marker does not exist yet.
func Retrograde(entryDate time.Time, info model.PlanetaryInfo, existing IDSet) (model.RetrogradeActive, bool) {
	if len(info.Retrogrades) == 0 {
		return model.RetrogradeActive{}, false
	}
	id := "retrograde-" + timecalc.ISODate(entryDate)
	if existing.Has(id) {
		return model.RetrogradeActive{}, false
	}

	names := make([]string, len(info.Retrogrades))
	for i, p := range info.Retrogrades {
		names[i] = string(p)
	}
	return model.RetrogradeActive{
		EventHeader: header(model.KindRetrograde, id, timecalc.StartOfDay(entryDate),
			"Cosmic Shift: Retrograde in Effect",
			"On this day, the cosmos presents a period of reflection and review as the following planets are in retrograde: "+
				strings.Join(names, ", ")+". This can influence communication, energy, and internal processes."),
		Planets: append([]model.Planet(nil), info.Retrogrades...),
	}, true
}

func header(kind model.EventKind, id string, at time.Time, title, desc string) model.EventHeader {
	return model.EventHeader{
		ID:          id,
		Type:        kind,
		CreatedAt:   at,
		Title:       title,
		Description: desc,
	}
}

func transitionID(prefix, from, to, date string) string {
	return prefix + "-" + from + "-to-" + to + "-" + date
}
