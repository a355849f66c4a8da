package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arag0re/go-mrp-remote/credentials"
	"github.com/arag0re/go-mrp-remote/mrplog"
)

var (
	credPath string
	addr     string
	verbose  bool

	store credentials.Store
)

// Execute builds and runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "mrpctl",
		Short: "Pair with and remote-control an Apple TV over MRP/Companion",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if credPath == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				credPath = filepath.Join(dir, ".mrpctl", "credentials.json")
			}
			if err := os.MkdirAll(filepath.Dir(credPath), 0o700); err != nil {
				return err
			}
			store = credentials.FileStore{Path: credPath}
			if verbose {
				mrplog.Verbosity = mrplog.LevelDebug
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&credPath, "credentials", "", "credentials file (default ~/.mrpctl/credentials.json)")
	root.PersistentFlags().StringVar(&addr, "addr", "", "host:port of the Apple TV control service")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(pairCmd(), connectCmd(), pressKeyCmd())
	return root.Execute()
}

func loadCredentials() (*credentials.Credentials, error) {
	return store.Load()
}
