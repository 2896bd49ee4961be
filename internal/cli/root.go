// Package cli implements the tally command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/tally/internal/config"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	backend string
	dsn     string

	// v holds flag and config file bindings for the current root command.
	v *viper.Viper
)

// errReported marks failures already shown to the user through a
// command's emitter.
var errReported = errors.New("command failed")

// newRootCmd builds the command tree. Flag variables are reset to their
// defaults on every call.
func newRootCmd() *cobra.Command {
	v = viper.New()

	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "Hierarchical time tracking",
		Long: `tally records time against a tree of tasks.

Every edit is a reversible command; the interactive shell keeps an undo
history of them. Data lives in a local sqlite file by default, or in
postgres.

Quick start:
  tally init                        Write ~/.tally/config.yaml and create the database
  tally task add 1 "Customer"       Create a top level task
  tally task add 2 "Project" -p 1   Create a child task
  tally event start 2               Start recording time
  tally event stop                  Stop it
  tally event list                  Show recorded time`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tally/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational messages")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend: sqlite, postgres, memory")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database file or connection string")

	_ = v.BindPFlag("database.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = v.BindPFlag("database.dsn", rootCmd.PersistentFlags().Lookup("dsn"))

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTaskCmd())
	rootCmd.AddCommand(newEventCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the command line and prints any error not already shown.
func Execute() error {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		PrintError(errOut, err)
	}
	return err
}

// initConfig locates the config file and installs the logger.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".tally")
		v.AddConfigPath("$HOME/.tally")
	}
	v.SetEnvPrefix("TALLY")

	if err := v.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	}

	level := slog.LevelWarn
	if cfg, err := loadConfig(); err == nil {
		if l, err := config.ParseLogLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

// configPath returns the file the config is read from and written to.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	if used := v.ConfigFileUsed(); used != "" {
		return used, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies TALLY_* variables and the
// --backend and --dsn flags, in that order.
func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvVars(cfg)

	for _, key := range []string{"database.backend", "database.dsn"} {
		if value := v.GetString(key); value != "" && isFlagValue(key) {
			config.Set(cfg, key, value)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isFlagValue reports whether the viper value for key came from a flag
// rather than the config file, which LoadFrom already read.
func isFlagValue(key string) bool {
	switch key {
	case "database.backend":
		return backend != ""
	case "database.dsn":
		return dsn != ""
	}
	return false
}
