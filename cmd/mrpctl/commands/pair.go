package commands

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arag0re/go-mrp-remote/pairsetup"
)

func pairCmd() *cobra.Command {
	var companionAddr string

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Run pair-setup against --addr, prompting for the on-screen PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				return fmt.Errorf("mrpctl pair: --addr is required")
			}
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return fmt.Errorf("mrpctl pair: dial %s: %w", addr, err)
			}
			defer conn.Close()

			transport := &pairsetup.AirPlayTransport{Conn: conn}
			if err := transport.StartPIN(); err != nil {
				return fmt.Errorf("mrpctl pair: start PIN: %w", err)
			}

			pin, err := readPIN()
			if err != nil {
				return err
			}

			creds, err := pairsetup.Run(transport, pin)
			if err != nil {
				return fmt.Errorf("mrpctl pair: %w", err)
			}

			if companionAddr != "" {
				companionConn, err := net.Dial("tcp", companionAddr)
				if err != nil {
					return fmt.Errorf("mrpctl pair: dial companion %s: %w", companionAddr, err)
				}
				defer companionConn.Close()

				companionTransport := &pairsetup.CompanionTransport{Conn: companionConn}
				companionCreds, err := pairsetup.Run(companionTransport, pin)
				if err != nil {
					return fmt.Errorf("mrpctl pair: companion: %w", err)
				}
				creds.Companion = companionCreds
			}

			if err := store.Save(creds); err != nil {
				return fmt.Errorf("mrpctl pair: save credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "paired and saved credentials to", credPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&companionAddr, "companion-addr", "", "host:port of the Companion Link service, to pair it in the same run")
	return cmd
}

func readPIN() (string, error) {
	fmt.Fprint(os.Stdout, "Enter the PIN displayed on the device: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("mrpctl pair: read PIN: %w", err)
	}
	return strings.TrimSpace(line), nil
}
