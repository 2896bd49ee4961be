package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/config"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config file and create the database",
		Long: `Write a default config file and create the database it points to.

The --backend and --dsn flags are stored in the new file.

Examples:
  tally init
  tally init --backend postgres --dsn postgres://localhost/tally
  tally init --force             # Overwrite an existing config file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists. Use --force to overwrite", path)
			}

			cfg := config.Default()
			if backend != "" {
				cfg.Database.Backend = backend
			}
			cfg.Database.DSN = dsn
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			cfgFile = path
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

			return withApp(cmd, func(ctx context.Context, a *app) error {
				c := a.Configuration()
				fmt.Fprintf(a.out.w, "Database ready (%s backend, user %d, installation %d)\n",
					a.cfg.BackendName(), c.UserID, c.InstallationID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}
