package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tally/internal/command"
)

// newImportCmd creates the import command
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all tasks and events with an export document",
		Long: `Replace all tasks and events with the contents of an export document.

The format follows the extension: .json is read as JSON, anything else as
XML. The replacement happens in one transaction; if the document is
rejected the database is left unchanged. Events of unknown tasks are
dropped. This cannot be undone, so export first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.do(ctx, command.NewImportDatabase(a.emitter, args[0]))
			})
		},
	}
}

// newExportCmd creates the export command
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write all tasks and events to an export document",
		Long: `Write all tasks and events to an export document.

Use a .json extension for JSON; anything else is written as XML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.do(ctx, command.NewExportDatabase(a.emitter, args[0]))
			})
		},
	}
}
