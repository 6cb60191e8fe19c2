package cmd

import (
	"io"
	"os"

	"github.com/habedi/tasksctl/config"
	"github.com/habedi/tasksctl/db"
	"github.com/habedi/tasksctl/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI and exits with a code derived from the error type.
func Execute() {
	if code := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

// run executes the command tree with the given arguments and streams and returns the
// process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := createRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		return clierr.ExitCode(err)
	}
	return 0
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tasksctl",
		Short:        "A command-line client for the ERP Tasks API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		refreshCmd(),
		tasksCmd(),
		commentsCmd(),
		attachmentsCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// withApp loads configuration, opens the database and wires the app around run.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return clierr.New(clierr.Validation, "Invalid configuration: "+err.Error(), err)
		}
		if err := initializeDatabase(); err != nil {
			return err
		}
		defer closeDatabase()

		a, err := newApp(cfg, db.GetDB(), cmd.ErrOrStderr())
		if err != nil {
			return clierr.New(clierr.Internal, "Failed to start", err)
		}
		defer a.close()

		return run(cmd, a, args)
	}
}

func initializeDatabase() error {
	if err := db.ConfigurePath(); err != nil {
		return clierr.New(clierr.Internal, "Failed to locate the data directory", err)
	}
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return clierr.New(clierr.Internal, "Failed to open the local database", err)
	}
	return nil
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
	}
}
