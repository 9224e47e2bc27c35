package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var changelogHTML bool

var changelogCmd = &cobra.Command{
	Use:   "changelog <deck-id>",
	Short: "Show the published revisions of a deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := New(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.changelog.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No changelog entries.")

			return nil
		}

		for _, entry := range entries {
			header := entry.Version
			if entry.Meta != nil && entry.Meta.Title != "" {
				header = fmt.Sprintf("%s - %s", entry.Version, entry.Meta.Title)
			}
			if entry.Meta != nil && entry.Meta.Breaking {
				header += " [breaking]"
			}

			fmt.Printf("## %s", header)
			if !entry.PublishedAt.IsZero() {
				fmt.Printf("  (%s)", entry.PublishedAt.Format("2006-01-02"))
			}
			fmt.Println()

			if changelogHTML && entry.HTML != "" {
				fmt.Println(entry.HTML)
			} else {
				fmt.Println(entry.Notes)
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	changelogCmd.Flags().BoolVar(&changelogHTML, "html", false, "print rendered HTML instead of raw notes")
}
