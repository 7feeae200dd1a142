package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EventKind discriminates the ChangeEvent variants.
type EventKind string

const (
	KindDayChange       EventKind = "PlanetaryDayChange"
	KindHourChange      EventKind = "PlanetaryHourChange"
	KindSunSignChange   EventKind = "SunSignChange"
	KindMoonSignChange  EventKind = "MoonSignChange"
	KindMoonPhaseChange EventKind = "MoonPhaseChange"
	KindRetrograde      EventKind = "Retrograde"
)

// EventKinds lists every kind in display order.
var EventKinds = []EventKind{
	KindDayChange, KindHourChange, KindSunSignChange,
	KindMoonSignChange, KindMoonPhaseChange, KindRetrograde,
}

// ParseEventKind accepts a kind name.
func ParseEventKind(s string) (EventKind, error) {
	for _, k := range EventKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// ChangeEvent is a timeline record synthesized from an astrological
// transition. The set of implementations is closed: DayChange, HourChange,
// SunSignChange, MoonSignChange, MoonPhaseChange and RetrogradeActive.
type ChangeEvent interface {
	Header() EventHeader
	isChangeEvent()
}

// EventHeader holds the fields shared by every ChangeEvent variant.
type EventHeader struct {
	ID          string    `json:"id"`
	Type        EventKind `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// Header returns the event's common fields.
func (h EventHeader) Header() EventHeader { return h }

// DayChange records a new ruling day planet.
type DayChange struct {
	EventHeader
	FromPlanet Planet `json:"fromPlanet"`
	ToPlanet   Planet `json:"toPlanet"`
}

// HourChange records a new ruling hour planet.
type HourChange struct {
	EventHeader
	FromPlanet Planet `json:"fromPlanet"`
	ToPlanet   Planet `json:"toPlanet"`
}

// SunSignChange records the Sun entering a new sign.
type SunSignChange struct {
	EventHeader
	FromSign ZodiacSign `json:"fromSign"`
	ToSign   ZodiacSign `json:"toSign"`
}

// MoonSignChange records the Moon entering a new sign.
type MoonSignChange struct {
	EventHeader
	FromSign ZodiacSign `json:"fromSign"`
	ToSign   ZodiacSign `json:"toSign"`
}

// MoonPhaseChange records a lunar phase transition.
type MoonPhaseChange struct {
	EventHeader
	FromPhase MoonPhase `json:"fromPhase"`
	ToPhase   MoonPhase `json:"toPhase"`
}

// RetrogradeActive marks a date on which one or more planets are retrograde.
type RetrogradeActive struct {
	EventHeader
	Planets []Planet `json:"planets"`
}

func (DayChange) isChangeEvent()        {}
func (HourChange) isChangeEvent()       {}
func (SunSignChange) isChangeEvent()    {}
func (MoonSignChange) isChangeEvent()   {}
func (MoonPhaseChange) isChangeEvent()  {}
func (RetrogradeActive) isChangeEvent() {}

// EventRecord is the persisted form of a ChangeEvent: a flat JSON object
// whose "type" field selects the variant.
type EventRecord struct {
	Event ChangeEvent
}

// MarshalJSON encodes the wrapped event.
func (r EventRecord) MarshalJSON() ([]byte, error) {
	if r.Event == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Event)
}

// UnmarshalJSON decodes the variant named by the "type" field.
func (r *EventRecord) UnmarshalJSON(data []byte) error {
	ev, err := DecodeEvent(data)
	if err != nil {
		return err
	}
	r.Event = ev
	return nil
}

// DecodeEvent decodes a single flat JSON event.
func DecodeEvent(data []byte) (ChangeEvent, error) {
	var probe struct {
		Type EventKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}

	switch probe.Type {
	case KindDayChange:
		return decodeAs[DayChange](data)
	case KindHourChange:
		return decodeAs[HourChange](data)
	case KindSunSignChange:
		return decodeAs[SunSignChange](data)
	case KindMoonSignChange:
		return decodeAs[MoonSignChange](data)
	case KindMoonPhaseChange:
		return decodeAs[MoonPhaseChange](data)
	case KindRetrograde:
		return decodeAs[RetrogradeActive](data)
	}
	return nil, fmt.Errorf("unknown event type %q", probe.Type)
}

func decodeAs[T ChangeEvent](data []byte) (ChangeEvent, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding %T: %w", v, err)
	}
	return v, nil
}

// Records wraps events for persistence.
func Records(events []ChangeEvent) []EventRecord {
	out := make([]EventRecord, 0, len(events))
	for _, ev := range events {
		out = append(out, EventRecord{Event: ev})
	}
	return out
}

// TimelineItem is either a journal entry or a change event.
type TimelineItem struct {
	Entry *JournalEntry
	Event ChangeEvent
}

// ID returns the item's identifier.
func (t TimelineItem) ID() string {
	if t.Entry != nil {
		return t.Entry.ID
	}
	return t.Event.Header().ID
}

// MarshalJSON encodes the item as {"kind":"entry","entry":{...}} or
// {"kind":"event","event":{...}}.
func (t TimelineItem) MarshalJSON() ([]byte, error) {
	if t.Entry != nil {
		return json.Marshal(struct {
			Kind  string        `json:"kind"`
			Entry *JournalEntry `json:"entry"`
		}{"entry", t.Entry})
	}
	return json.Marshal(struct {
		Kind  string      `json:"kind"`
		Event EventRecord `json:"event"`
	}{"event", EventRecord{Event: t.Event}})
}

// CreatedAt returns the item's timestamp.
func (t TimelineItem) CreatedAt() time.Time {
	if t.Entry != nil {
		return t.Entry.CreatedAt
	}
	return t.Event.Header().CreatedAt
}

// SortTimeline orders items newest first. Items with equal timestamps keep
// their insertion order.
func SortTimeline(items []TimelineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt().After(items[j].CreatedAt())
	})
}
