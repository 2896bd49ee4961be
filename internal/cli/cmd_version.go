package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/db"
	"github.com/randalmurphal/tally/internal/interchange"
)

// Version is set at build time.
var Version = "0.1.0-dev"

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tally version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tally version %s (schema %d, interchange %d)\n",
				Version, db.SchemaVersion, interchange.Version)
		},
	}
}
