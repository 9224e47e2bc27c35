package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background sync daemon",
	Long: `Runs the periodic update checker until interrupted. SIGUSR1 triggers an
immediate check; a second trigger while a check is in flight shares its
result instead of starting another one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := New(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sub := a.checker.Subscribe()
		defer sub.Cancel()

		go a.checker.Run(ctx)
		go a.watchNotifications(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
		defer signal.Stop(sigs)

		for {
			select {
			case event := <-sub.C:
				switch {
				case event.Err != nil:
					a.log.Warn("Check attempt failed", slog.Any("error", event.Err))
				case len(event.Result.NewlyAvailable) > 0:
					a.log.Info("Updates available", slog.Int("count", len(event.Result.NewlyAvailable)))
				}
			case sig := <-sigs:
				switch sig {
				case syscall.SIGUSR1:
					go func() {
						if _, err := a.checker.Check(ctx); err != nil {
							a.log.Warn("Manual check failed", slog.Any("error", err))
						}
					}()
				default:
					fmt.Println("Received termination signal. Shutting down...")

					return nil
				}
			}
		}
	},
}

func (a *App) watchNotifications(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SyncConfig.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.notice.Check(ctx, false, false); err != nil {
				a.log.Warn("Notification check failed", slog.Any("error", err))
			}
		}
	}
}
