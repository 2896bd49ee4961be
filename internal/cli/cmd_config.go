package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/tally/internal/config"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage tally configuration.

Two kinds of settings exist:
  file         database.backend, database.dsn, log_level, history_limit
               stored in ~/.tally/config.yaml (TALLY_* variables override)
  preferences  user and installation identity, display and tracking
               preferences, stored inside the database

Examples:
  tally config show
  tally config get database.backend
  tally config set history_limit 50
  tally config set duration_format decimal`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

// newConfigShowCmd creates the 'config show' subcommand.
func newConfigShowCmd() *cobra.Command {
	var fileOnly bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show file configuration and preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if err := printYAML(out, cfg); err != nil {
				return err
			}
			if fileOnly {
				return nil
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				prefs := make(map[string]string, len(config.Fields))
				for _, f := range config.Fields {
					prefs[f.Key] = f.Get(a.Configuration())
				}
				return printYAML(out, map[string]map[string]string{"preferences": prefs})
			})
		},
	}

	cmd.Flags().BoolVar(&fileOnly, "file", false, "Only show the config file values")
	return cmd
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if value, ok := config.Get(cfg, key); ok {
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			field, ok := config.LookupField(key)
			if !ok {
				return unknownKey(key)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fmt.Fprintln(a.out.w, field.Get(a.Configuration()))
				return nil
			})
		},
	}
}

// newConfigSetCmd creates the 'config set' subcommand.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if _, ok := config.Get(config.Default(), key); ok {
				path, err := configPath()
				if err != nil {
					return err
				}
				// Read the file alone so overrides are not written back.
				cfg, err := config.LoadFrom(path)
				if err != nil {
					return err
				}
				if !config.Set(cfg, key, value) {
					return fmt.Errorf("invalid value %q for %s", value, key)
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				if err := cfg.SaveTo(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, path)
				return nil
			}

			field, ok := config.LookupField(key)
			if !ok {
				return unknownKey(key)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := field.Set(a.Configuration(), value); err != nil {
					return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
				}
				if err := a.ctrl.PersistMetaData(ctx); err != nil {
					return err
				}
				fmt.Fprintf(a.out.w, "Set %s = %s\n", key, field.Get(a.Configuration()))
				return nil
			})
		},
	}
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (file keys: %v, preferences: %v)", key, config.Paths(), config.FieldKeys())
}

func printYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}
