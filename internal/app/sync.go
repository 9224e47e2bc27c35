package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [deck-id...]",
	Short: "Download pending deck updates",
	Long: `Downloads the given decks, or every deck with a pending update when no
ids are passed. Failures are reported per deck and never abort the rest of
the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := New(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		requested := args
		if len(requested) == 0 {
			st := a.store.Snapshot()
			for id := range st.AvailableUpdates {
				requested = append(requested, id)
			}
			sort.Strings(requested)
		}

		if len(requested) == 0 {
			fmt.Println("Nothing to sync.")

			return nil
		}

		results := a.syncer.DownloadMany(cmd.Context(), requested)

		var failed int
		for _, res := range results {
			if res.OK() {
				fmt.Printf("ok    %s  %s\n", res.DeckID, res.Version)
			} else {
				failed++
				fmt.Printf("fail  %s  %s: %v\n", res.DeckID, res.ErrKind, res.Err)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d deck(s) failed", failed, len(results))
		}

		return nil
	},
}
