package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/storage"
)

var editFlags entryFlags

var editCmd = &cobra.Command{
	Use:   "edit <id> [text]",
	Short: "Edit an existing journal entry",
	Long: `Edit rewrites an entry. Fields whose flags are not given keep their
current value. Changing --date or --location recomputes the snapshot.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEdit,
}

func init() {
	editFlags.register(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	id := args[0]

	a := loadApp(cmd.Context(), editFlags.enrich)
	defer a.Close()

	old, err := a.store.FindEntry(cmd.Context(), a.cfg.User, id)
	if errors.Is(err, storage.ErrNotFound) {
		return userError(fmt.Errorf("no entry with id %q", id))
	}
	if err != nil {
		return storageError(err)
	}

	text := old.Text
	if len(args) > 1 {
		text = strings.Join(args[1:], " ")
	}
	d, err := editFlags.draft(cmd, text)
	if err != nil {
		return userError(err)
	}

	// Unset flags keep the stored values.
	flags := cmd.Flags()
	if !flags.Changed("mood") {
		d.Mood = old.Mood
	}
	if !flags.Changed("location") {
		d.Location = old.Location
	}
	if !flags.Changed("lat") && !flags.Changed("lng") {
		d.Coords = old.Coords
	}
	if !flags.Changed("tags") {
		d.Hashtags = old.Hashtags
	}
	if !flags.Changed("image") {
		d.Images = old.Images
	}
	if !flags.Changed("video") {
		d.Videos = old.Videos
	}

	saved, err := a.journal.Update(cmd.Context(), id, d)
	if err != nil {
		return saveError(err)
	}

	fmt.Printf("Updated entry %s\n", saved.Entry.ID)
	for _, ev := range saved.Events {
		fmt.Printf("  + %s\n", ev.Header().Title)
	}
	if saved.Advisory != "" {
		fmt.Fprintf(os.Stderr, "Note: %s\n", saved.Advisory)
	}
	return nil
}
