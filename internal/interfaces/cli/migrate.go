package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/community-intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// Indirections over the migrator so that the commands can be tested without
// a database.
var (
	runMigrations     = postgres.RunMigrations
	rollbackMigration = postgres.RollbackMigration
	migrationStatus   = postgres.MigrationStatus
)

// migrationState is the output of "migrate status".
type migrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationState) String() string {
	return fmt.Sprintf("version %d (dirty: %t)", s.Version, s.Dirty)
}

// NewMigrateCmd creates the command group that manages the development schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the resources schema of a local PostgreSQL database",
		Long: "Apply or roll back the embedded migrations that create and seed the\n" +
			"resources and categories tables.  Requires a postgres:// data source URL.",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, dbURL, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := rollbackMigration(dbURL, steps); err != nil {
				return err
			}
			cliCtx.Logger.Info("migrations rolled back", logging.Int("steps", steps))
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cliCtx, dbURL, err := migrationTarget(cmd)
				if err != nil {
					return err
				}
				if err := runMigrations(dbURL); err != nil {
					return err
				}
				cliCtx.Logger.Info("migrations applied")
				PrintSuccess(cmd, "migrations applied")
				return nil
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, dbURL, err := migrationTarget(cmd)
				if err != nil {
					return err
				}
				version, dirty, err := migrationStatus(dbURL)
				if err != nil {
					return err
				}
				return PrintResult(cmd, migrationState{Version: version, Dirty: dirty})
			},
		},
	)
	return cmd
}

func migrationTarget(cmd *cobra.Command) (*CLIContext, string, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, "", err
	}
	if cliCtx.Config.DataSourceKind() != "postgres" {
		return nil, "", errors.New(errors.ErrCodeDataSourceNotConfigured,
			"migrations require a postgres:// data source URL")
	}
	return cliCtx, cliCtx.Config.DataSource.URL, nil
}
