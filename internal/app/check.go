package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the catalog for newer versions of installed decks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := New(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.checker.Check(cmd.Context())
		if err != nil && result == nil {
			return err
		}

		if len(result.NewlyAvailable) == 0 {
			fmt.Println("All installed decks are up to date.")
		} else {
			fmt.Printf("%d update(s) available:\n", len(result.NewlyAvailable))
			st := a.store.Snapshot()
			for _, id := range result.NewlyAvailable {
				fmt.Printf("  %s  %s -> %s\n", id, st.Installed[id].Version, st.AvailableUpdates[id])
			}
		}

		// A check can succeed while the state file write fails; report it
		// after the result instead of hiding the result.
		if err != nil {
			return err
		}

		return nil
	},
}
