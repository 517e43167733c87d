package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/lightnode/internal/logging"
	lightnats "github.com/smazurov/lightnode/internal/nats"
	"github.com/spf13/cobra"
)

// CreateSendCmd creates the send command.
func CreateSendCmd() *cobra.Command {
	var url, reason string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send <on|off|load NAME|color NAME|reconnect>",
		Short: "Send a control directive to a running engine over NATS",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := controlMessage(args)
			if err != nil {
				return err
			}
			msg.Reason = reason

			// Build the directive locally so typos fail before connecting
			if _, err := msg.Directive(); err != nil {
				return err
			}

			client, err := lightnats.NewControlClient(url, logging.GetLogger("nats"))
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ack, err := client.Send(ctx, msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", ack.Directive)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats-url", fmt.Sprintf("nats://127.0.0.1:%d", lightnats.DefaultPort), "NATS server URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "How long to wait for the engine to acknowledge")
	cmd.Flags().StringVar(&reason, "reason", "cli", "Reason recorded in the engine log")
	return cmd
}

// controlMessage maps command line arguments onto a control message.
func controlMessage(args []string) (lightnats.ControlMessage, error) {
	action := strings.ToLower(args[0])
	msg := lightnats.ControlMessage{Action: action}

	switch action {
	case lightnats.ActionLoad, lightnats.ActionColor:
		if len(args) != 2 {
			return msg, fmt.Errorf("%s needs exactly one argument", action)
		}
		if action == lightnats.ActionLoad {
			msg.Pattern = args[1]
		} else {
			msg.Color = args[1]
		}
	default:
		if len(args) != 1 {
			return msg, fmt.Errorf("%s takes no argument", action)
		}
	}
	return msg, nil
}
