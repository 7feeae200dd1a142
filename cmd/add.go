package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/storage"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

// entryFlags are shared by add and edit.
type entryFlags struct {
	mood     string
	date     string
	location string
	lat      float64
	lng      float64
	tags     string
	images   []string
	videos   []string
	enrich   bool
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mood, "mood", "", "Mood, e.g. Calm, Joyful, Tired (default Calm)")
	cmd.Flags().StringVar(&f.date, "date", "", "Back-date the entry (RFC3339, \"YYYY-MM-DD HH:MM\" or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.location, "location", "", "Where the entry was written")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "Longitude in decimal degrees")
	cmd.Flags().StringVar(&f.tags, "tags", "", "Comma-separated hashtags")
	cmd.Flags().StringSliceVar(&f.images, "image", nil, "Image reference (repeatable)")
	cmd.Flags().StringSliceVar(&f.videos, "video", nil, "Video reference (repeatable)")
	cmd.Flags().BoolVar(&f.enrich, "enrich", false, "Ask the enrichment service even if it is disabled in the config")
}

// draft builds a journal draft from text and the flags set on cmd.
func (f *entryFlags) draft(cmd *cobra.Command, text string) (journal.Draft, error) {
	d := journal.Draft{
		Text:     text,
		Mood:     model.Mood(f.mood),
		Location: f.location,
		Images:   f.images,
		Videos:   f.videos,
	}
	if f.tags != "" {
		d.Hashtags = strings.Split(f.tags, ",")
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		d.Coords = &model.Coords{Lat: f.lat, Lng: f.lng}
	}
	if f.date != "" {
		t, err := timecalc.ParseLocal(f.date, time.Local)
		if err != nil {
			return journal.Draft{}, fmt.Errorf("invalid --date value: %w", err)
		}
		d.Date, d.ManualDate = t, true
	}
	return d, nil
}

var addFlags entryFlags

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Write a new journal entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	addFlags.register(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	d, err := addFlags.draft(cmd, strings.Join(args, " "))
	if err != nil {
		return userError(err)
	}

	a := loadApp(cmd.Context(), addFlags.enrich)
	defer a.Close()

	saved, err := a.journal.Save(cmd.Context(), d)
	if err != nil {
		return saveError(err)
	}

	e := saved.Entry
	fmt.Printf("Saved entry %s at %s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  %s day, %s hour · Sun in %s · Moon in %s (%s)\n",
		e.PlanetaryDay, e.PlanetaryHour, e.SunSign, e.MoonSign, e.MoonPhase)
	for _, ev := range saved.Events {
		fmt.Printf("  + %s\n", ev.Header().Title)
	}
	if saved.Advisory != "" {
		fmt.Fprintf(os.Stderr, "Note: %s\n", saved.Advisory)
	}
	return nil
}

// saveError classifies a failed save: invalid input or an unknown entry is a
// user error, anything else a storage error.
func saveError(err error) error {
	if errors.Is(err, journal.ErrEmptyText) || errors.Is(err, journal.ErrInvalidMood) ||
		errors.Is(err, storage.ErrNotFound) {
		return userError(err)
	}
	return storageError(err)
}
