package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arag0re/go-mrp-remote/airplay"
	"github.com/arag0re/go-mrp-remote/mrp"
)

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect to --addr and print inbound MRP updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dialAirPlay()
			if err != nil {
				return err
			}
			defer conn.Close()

			conn.Observe(func(env mrp.Envelope) {
				fmt.Fprintf(cmd.OutOrStdout(), "<- mrp type=%d identifier=%q (%d payload bytes)\n", env.Type, env.Identifier, len(env.Payload))
			})

			fmt.Fprintln(cmd.OutOrStdout(), "connected, state:", conn.State())
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt)
			<-sig
			return nil
		},
	}
}

func dialAirPlay() (*airplay.Conn, error) {
	if addr == "" {
		return nil, fmt.Errorf("mrpctl: --addr is required")
	}
	creds, err := loadCredentials()
	if err != nil {
		return nil, fmt.Errorf("mrpctl: load credentials: %w", err)
	}
	conn := airplay.New(creds, airplay.DefaultOptions())
	if err := conn.Dial(addr); err != nil {
		return nil, fmt.Errorf("mrpctl: connect: %w", err)
	}
	return conn, nil
}
