// Package search filters journal entries and timeline views.
package search

import (
	"fmt"
	"strings"

	"github.com/Tiliavir/astro-journal/internal/model"
)

// Filter selects journal entries. Zero-valued fields match everything.
type Filter struct {
	Keyword  string
	Hashtag  string
	Day      model.Planet
	Hour     model.Planet
	SunSign  model.ZodiacSign
	MoonSign model.ZodiacSign
	Phase    model.MoonPhase
}

// Query holds filter criteria as typed by a user. Empty fields are unset.
type Query struct {
	Keyword  string
	Hashtag  string
	Day      string
	Hour     string
	SunSign  string
	MoonSign string
	Phase    string
}

// Filter validates q and converts it to a Filter.
func (q Query) Filter() (Filter, error) {
	f := Filter{Keyword: strings.TrimSpace(q.Keyword), Hashtag: q.Hashtag}
	var err error
	if q.Day != "" {
		if f.Day, err = model.ParsePlanet(canonical(q.Day)); err != nil {
			return Filter{}, fmt.Errorf("day: %w", err)
		}
	}
	if q.Hour != "" {
		if f.Hour, err = model.ParsePlanet(canonical(q.Hour)); err != nil {
			return Filter{}, fmt.Errorf("hour: %w", err)
		}
	}
	if q.SunSign != "" {
		if f.SunSign, err = model.ParseZodiacSign(canonical(q.SunSign)); err != nil {
			return Filter{}, fmt.Errorf("sun sign: %w", err)
		}
	}
	if q.MoonSign != "" {
		if f.MoonSign, err = model.ParseZodiacSign(canonical(q.MoonSign)); err != nil {
			return Filter{}, fmt.Errorf("moon sign: %w", err)
		}
	}
	if q.Phase != "" {
		if f.Phase, err = model.ParseMoonPhase(canonical(q.Phase)); err != nil {
			return Filter{}, fmt.Errorf("phase: %w", err)
		}
	}
	return f, nil
}

// canonical title-cases each word so "waxing gibbous" parses.
func canonical(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// IsZero reports whether the filter matches every entry.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether e satisfies every set criterion. The keyword is a
// case-insensitive substring of the text; the hashtag ignores case and '#'.
// A coarse phase (Waxing/Waning) also matches rich phases of the same half.
func (f Filter) Match(e model.JournalEntry) bool {
	if f.Keyword != "" && !strings.Contains(strings.ToLower(e.Text), strings.ToLower(f.Keyword)) {
		return false
	}
	if tag := NormalizeHashtag(f.Hashtag); tag != "" && !hasTag(e.Hashtags, tag) {
		return false
	}
	if f.Day != "" && e.PlanetaryDay != f.Day {
		return false
	}
	if f.Hour != "" && e.PlanetaryHour != f.Hour {
		return false
	}
	if f.SunSign != "" && e.SunSign != f.SunSign {
		return false
	}
	if f.MoonSign != "" && e.MoonSign != f.MoonSign {
		return false
	}
	if f.Phase != "" && !phaseMatches(f.Phase, e.MoonPhase) {
		return false
	}
	return true
}

// Entries returns the entries among items that match f, in input order.
func (f Filter) Entries(items []model.TimelineItem) []model.JournalEntry {
	var out []model.JournalEntry
	for _, it := range items {
		if it.Entry != nil && f.Match(*it.Entry) {
			out = append(out, *it.Entry)
		}
	}
	return out
}

func phaseMatches(want, got model.MoonPhase) bool {
	if want == got {
		return true
	}
	if want.Vocabulary() == model.VocabularyCoarse {
		return got.Coarse() == want
	}
	return false
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if NormalizeHashtag(t) == want {
			return true
		}
	}
	return false
}

// NormalizeHashtag lower-cases a tag and strips '#' characters and spaces.
func NormalizeHashtag(tag string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(tag, "#", "")))
}

// NormalizeHashtags normalizes tags, dropping empties and duplicates.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeHashtag(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
