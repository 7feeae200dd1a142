package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/storage"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a journal entry or timeline event",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	a := loadApp(cmd.Context(), false)
	defer a.Close()

	err := a.journal.Delete(cmd.Context(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return userError(fmt.Errorf("nothing with id %q", args[0]))
	}
	if err != nil {
		return storageError(err)
	}

	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
