package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gatekeep/cmd/internal/app"
	"gatekeep/cmd/internal/db"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gatekeep: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "gatekeep",
		Short: "Username/password and federated sign-in with server-side sessions",
		Long: `gatekeep serves registration, login, Google sign-in and a session-gated
home page. Configuration comes from GATEKEEP_* environment variables and an
optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file (keys without the GATEKEEP_ prefix)")

	root.AddCommand(
		serveCmd(&envFile),
		migrateCmd(&envFile),
		versionCmd(),
	)
	return root
}

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return app.Serve(*envFile)
		},
	}
}

func migrateCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations for GATEKEEP_DATABASE_URL",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return app.Migrate(*envFile, db.Up)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return app.Migrate(*envFile, db.Down)
			},
		},
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gatekeep %s (%s)\n", version, commit)
		},
	}
}
