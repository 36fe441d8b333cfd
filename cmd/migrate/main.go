// migrate applies the embedded SQL migrations. Usage: migrate up|down|version [--steps N].
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multidevice-identity/backend/internal/config"
	"multidevice-identity/backend/internal/db/migrate"
)

var steps int

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Database migration tools",
		Long:          `Apply or roll back the embedded schema migrations against DATABASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().IntVarP(&steps, "steps", "n", 0, "Number of migrations to apply (0 means all)")
	cmd.AddCommand(
		newDirectionCommand("up", "Run pending migrations"),
		newDirectionCommand("down", "Roll back migrations"),
		newVersionCommand(),
	)
	return cmd
}

func newDirectionCommand(direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   direction,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			err = migrate.Run(dsn, direction, steps)
			if errors.Is(err, migrate.ErrNoChange) {
				cmd.Println("no change")
				return nil
			}
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			v, dirty, err := migrate.Version(dsn)
			if err != nil {
				return err
			}
			cmd.Printf("version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", errors.New("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	return cfg.DatabaseURL, nil
}
