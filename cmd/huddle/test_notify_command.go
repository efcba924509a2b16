package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"huddle/internal/app"
	"huddle/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				d, err := daemon.New(a.Config, a, nil)
				if err != nil {
					return err
				}
				sent, message, err := d.TestNotification(cmd.Context())
				if message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), message)
				} else if !sent && err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
				}
				return err
			})
		},
	}
}
