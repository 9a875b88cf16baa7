package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spectra/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Sent {
					fmt.Fprintln(stdout, "Test notification sent")
					return nil
				}
				message := strings.TrimSpace(resp.Message)
				if message == "" {
					message = "notification was not sent"
				}
				return fmt.Errorf("%s", message)
			})
		},
	}
}
