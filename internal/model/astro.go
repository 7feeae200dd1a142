package model

import "fmt"

// Planet is one of the seven classical planets used for day and hour rulership.
type Planet string

const (
	Sun     Planet = "Sun"
	Moon    Planet = "Moon"
	Mars    Planet = "Mars"
	Mercury Planet = "Mercury"
	Jupiter Planet = "Jupiter"
	Venus   Planet = "Venus"
	Saturn  Planet = "Saturn"
)

// Planets lists every planet in weekday order (Sunday first).
var Planets = []Planet{Sun, Moon, Mars, Mercury, Jupiter, Venus, Saturn}

// ParsePlanet returns the Planet named s or an error if s is not one of the seven.
func ParsePlanet(s string) (Planet, error) {
	for _, p := range Planets {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown planet %q", s)
}

// ZodiacSign is one of the twelve 30° tropical signs.
type ZodiacSign string

const (
	Aries       ZodiacSign = "Aries"
	Taurus      ZodiacSign = "Taurus"
	Gemini      ZodiacSign = "Gemini"
	Cancer      ZodiacSign = "Cancer"
	Leo         ZodiacSign = "Leo"
	Virgo       ZodiacSign = "Virgo"
	Libra       ZodiacSign = "Libra"
	Scorpio     ZodiacSign = "Scorpio"
	Sagittarius ZodiacSign = "Sagittarius"
	Capricorn   ZodiacSign = "Capricorn"
	Aquarius    ZodiacSign = "Aquarius"
	Pisces      ZodiacSign = "Pisces"
)

// ZodiacSigns lists the signs in ecliptic order starting at longitude 0.
var ZodiacSigns = []ZodiacSign{
	Aries, Taurus, Gemini, Cancer, Leo, Virgo,
	Libra, Scorpio, Sagittarius, Capricorn, Aquarius, Pisces,
}

// ParseZodiacSign returns the sign named s or an error.
func ParseZodiacSign(s string) (ZodiacSign, error) {
	for _, z := range ZodiacSigns {
		if string(z) == s {
			return z, nil
		}
	}
	return "", fmt.Errorf("unknown zodiac sign %q", s)
}

// MoonPhase names a lunar phase in either the coarse or the rich vocabulary.
type MoonPhase string

// Rich (eight-phase) vocabulary, produced by enrichment providers.
const (
	NewMoon        MoonPhase = "New Moon"
	WaxingCrescent MoonPhase = "Waxing Crescent"
	FirstQuarter   MoonPhase = "First Quarter"
	WaxingGibbous  MoonPhase = "Waxing Gibbous"
	FullMoon       MoonPhase = "Full Moon"
	WaningGibbous  MoonPhase = "Waning Gibbous"
	ThirdQuarter   MoonPhase = "Third Quarter"
	WaningCrescent MoonPhase = "Waning Crescent"
)

// Coarse (two-state) vocabulary, produced by the local calculator.
const (
	Waxing MoonPhase = "Waxing"
	Waning MoonPhase = "Waning"
)

// PhaseVocabulary identifies which set of names a MoonPhase belongs to.
type PhaseVocabulary int

const (
	VocabularyUnknown PhaseVocabulary = iota
	VocabularyCoarse
	VocabularyRich
)

// RichPhases lists the eight named phases in cycle order.
var RichPhases = []MoonPhase{
	NewMoon, WaxingCrescent, FirstQuarter, WaxingGibbous,
	FullMoon, WaningGibbous, ThirdQuarter, WaningCrescent,
}

// Vocabulary reports whether p is a coarse, rich or unrecognised phase name.
func (p MoonPhase) Vocabulary() PhaseVocabulary {
	switch p {
	case Waxing, Waning:
		return VocabularyCoarse
	}
	for _, r := range RichPhases {
		if p == r {
			return VocabularyRich
		}
	}
	return VocabularyUnknown
}

// Coarse maps a rich phase onto the waxing/waning half it belongs to. New Moon
// and Full Moon fall on the Waning side, matching the local calculator's
// treatment of separations of exactly 0° and 180°.
func (p MoonPhase) Coarse() MoonPhase {
	switch p {
	case Waxing, WaxingCrescent, FirstQuarter, WaxingGibbous:
		return Waxing
	case Waning, NewMoon, FullMoon, WaningGibbous, ThirdQuarter, WaningCrescent:
		return Waning
	}
	return p
}

// ParseMoonPhase accepts a name from either vocabulary.
func ParseMoonPhase(s string) (MoonPhase, error) {
	p := MoonPhase(s)
	if p.Vocabulary() == VocabularyUnknown {
		return "", fmt.Errorf("unknown moon phase %q", s)
	}
	return p, nil
}

// PlanetaryInfo is an immutable snapshot of the astrological context of one
// instant. A new snapshot supersedes the previous one; it is never updated.
type PlanetaryInfo struct {
	PlanetaryDay  Planet     `json:"planetaryDay"`
	PlanetaryHour Planet     `json:"planetaryHour"`
	SunSign       ZodiacSign `json:"sunSign"`
	MoonSign      ZodiacSign `json:"moonSign"`
	MoonPhase     MoonPhase  `json:"moonPhase"`
	Retrogrades   []Planet   `json:"retrogrades"`
	LocationName  string     `json:"locationName,omitempty"`
}

// Validate checks that every enumerated field holds a known value.
func (p PlanetaryInfo) Validate() error {
	if _, err := ParsePlanet(string(p.PlanetaryDay)); err != nil {
		return fmt.Errorf("planetaryDay: %w", err)
	}
	if _, err := ParsePlanet(string(p.PlanetaryHour)); err != nil {
		return fmt.Errorf("planetaryHour: %w", err)
	}
	if _, err := ParseZodiacSign(string(p.SunSign)); err != nil {
		return fmt.Errorf("sunSign: %w", err)
	}
	if _, err := ParseZodiacSign(string(p.MoonSign)); err != nil {
		return fmt.Errorf("moonSign: %w", err)
	}
	if _, err := ParseMoonPhase(string(p.MoonPhase)); err != nil {
		return fmt.Errorf("moonPhase: %w", err)
	}
	for _, r := range p.Retrogrades {
		if _, err := ParsePlanet(string(r)); err != nil {
			return fmt.Errorf("retrogrades: %w", err)
		}
	}
	return nil
}
