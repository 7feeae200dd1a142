package model

import (
	"fmt"
	"time"
)

// Mood is how the author felt when writing an entry.
type Mood string

// MoodCategory groups moods for reporting.
type MoodCategory string

const (
	MoodPositive MoodCategory = "Positive"
	MoodNeutral  MoodCategory = "Neutral"
	MoodNegative MoodCategory = "Negative"
)

var moodCategories = map[Mood]MoodCategory{
	"Joyful": MoodPositive, "Grateful": MoodPositive, "Excited": MoodPositive, "Proud": MoodPositive,
	"Hopeful": MoodPositive, "Creative": MoodPositive, "Peaceful": MoodPositive,
	"Content": MoodNeutral, "Calm": MoodNeutral, "Thoughtful": MoodNeutral, "Focused": MoodNeutral,
	"Indifferent": MoodNeutral, "Observant": MoodNeutral,
	"Sad": MoodNegative, "Anxious": MoodNegative, "Angry": MoodNegative, "Stressed": MoodNegative,
	"Tired": MoodNegative, "Frustrated": MoodNegative, "Lonely": MoodNegative,
}

// DefaultMood is used when an entry is written without one.
const DefaultMood Mood = "Calm"

// Category returns the mood's category; ok is false for unknown moods.
func (m Mood) Category() (MoodCategory, bool) {
	c, ok := moodCategories[m]
	return c, ok
}

// ParseMood validates s against the known moods.
func ParseMood(s string) (Mood, error) {
	m := Mood(s)
	if _, ok := moodCategories[m]; !ok {
		return "", fmt.Errorf("unknown mood %q", s)
	}
	return m, nil
}

// Coords is a geographic position in decimal degrees.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// JournalEntry is a single user-written entry stamped with the astrological
// context of its CreatedAt instant.
type JournalEntry struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	CreatedAt     time.Time  `json:"createdAt"`
	PlanetaryDay  Planet     `json:"planetaryDay"`
	PlanetaryHour Planet     `json:"planetaryHour"`
	SunSign       ZodiacSign `json:"sunSign"`
	MoonSign      ZodiacSign `json:"moonSign"`
	MoonPhase     MoonPhase  `json:"moonPhase"`
	Mood          Mood       `json:"mood"`
	Images        []string   `json:"images,omitempty"`
	Videos        []string   `json:"videos,omitempty"`
	Retrogrades   []Planet   `json:"retrogrades,omitempty"`
	Hashtags      []string   `json:"hashtags,omitempty"`
	Location      string     `json:"location,omitempty"`
	Coords        *Coords    `json:"coords,omitempty"`
}

// Stamp copies the snapshot fields of info onto the entry.
func (e *JournalEntry) Stamp(info PlanetaryInfo) {
	e.PlanetaryDay = info.PlanetaryDay
	e.PlanetaryHour = info.PlanetaryHour
	e.SunSign = info.SunSign
	e.MoonSign = info.MoonSign
	e.MoonPhase = info.MoonPhase
	e.Retrogrades = append([]Planet(nil), info.Retrogrades...)
}

// DayFile is the top-level structure stored in each daily JSON file.
type DayFile struct {
	Date    string         `json:"date"`
	Entries []JournalEntry `json:"entries"`
	Events  []EventRecord  `json:"events"`
}
