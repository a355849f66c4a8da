package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arag0re/go-mrp-remote/mrp"
)

func pressKeyCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "press-key <key>",
		Short: "Connect to --addr and send a single remote-control key press",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := mrp.Key(args[0])
			if _, _, ok := mrp.Usage(key); !ok {
				return fmt.Errorf("mrpctl press-key: unrecognized key %q", args[0])
			}

			conn, err := dialAirPlay()
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.PressKey(key, long); err != nil {
				return fmt.Errorf("mrpctl press-key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "hold the key as a long press")
	return cmd
}
