package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsMarkRead bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show unread publisher notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := New(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		notifications, err := a.notice.Check(cmd.Context(), true, notificationsMarkRead)
		if err != nil {
			return err
		}

		if len(notifications) == 0 {
			fmt.Println("No notifications.")

			return nil
		}

		for _, n := range notifications {
			fmt.Printf("[%s] %s\n", n.Type, n.Title)
			if n.Message != "" {
				fmt.Printf("    %s\n", n.Message)
			}
			if !n.CreatedAt.IsZero() {
				fmt.Printf("    %s\n", n.CreatedAt.Format("2006-01-02 15:04"))
			}
		}

		return nil
	},
}

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsMarkRead, "mark-read", false, "mark returned notifications as read")
}
