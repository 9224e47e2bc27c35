package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed decks and pending updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := New(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.store.Snapshot()

		imported, err := a.coll.Count(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Installed decks:   %d (%d in collection)\n", len(st.Installed), imported)
		fmt.Printf("Pending updates:   %d\n", len(st.AvailableUpdates))
		if st.LastCheckAt.IsZero() {
			fmt.Println("Last check:        never")
		} else {
			fmt.Printf("Last check:        %s\n", st.LastCheckAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Printf("Check interval:    %dh\n", st.CheckIntervalHours)
		if st.UnreadNotifications > 0 {
			fmt.Printf("Notifications:     %d unread\n", st.UnreadNotifications)
		}

		if len(st.Installed) == 0 {
			return nil
		}

		ids := make([]string, 0, len(st.Installed))
		for id := range st.Installed {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Println()
		for _, id := range ids {
			rec := st.Installed[id]
			if pending, ok := st.AvailableUpdates[id]; ok {
				fmt.Printf("  %s  %s  (update available: %s)\n", id, rec.Version, pending)
			} else {
				fmt.Printf("  %s  %s\n", id, rec.Version)
			}
		}

		return nil
	},
}
