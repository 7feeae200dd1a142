package search

import (
	"strings"

	"github.com/Tiliavir/astro-journal/internal/model"
)

// Visibility hides event kinds from timeline views. Journal entries are
// always shown. The zero value shows everything.
type Visibility map[model.EventKind]bool

// AllVisible returns a Visibility with every kind shown.
func AllVisible() Visibility {
	v := Visibility{}
	v.ShowAll()
	return v
}

// Hiding returns a Visibility with the named kinds hidden. Names may be
// comma-separated; "all" hides every kind.
func Hiding(names ...string) (Visibility, error) {
	v := AllVisible()
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "":
			case strings.EqualFold(part, "all"):
				v.HideAll()
			default:
				k, err := model.ParseEventKind(part)
				if err != nil {
					return nil, err
				}
				v[k] = false
			}
		}
	}
	return v, nil
}

// ShowAll marks every kind visible.
func (v Visibility) ShowAll() {
	for _, k := range model.EventKinds {
		v[k] = true
	}
}

// HideAll marks every kind hidden.
func (v Visibility) HideAll() {
	for _, k := range model.EventKinds {
		v[k] = false
	}
}

// Visible reports whether events of kind k are shown. Unknown kinds are.
func (v Visibility) Visible(k model.EventKind) bool {
	shown, ok := v[k]
	return !ok || shown
}

// Apply returns the items that are entries or visible events.
func (v Visibility) Apply(items []model.TimelineItem) []model.TimelineItem {
	out := make([]model.TimelineItem, 0, len(items))
	for _, it := range items {
		if it.Entry != nil || v.Visible(it.Event.Header().Type) {
			out = append(out, it)
		}
	}
	return out
}
