package main

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/api/db"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

type MigrateCommand struct {
	Logger LagerFlag

	MigrationsTableName string `long:"migrations-table-name" description:"Name of the table which holds migration information" default:"magpie_migrations"`

	SQL SQLFlag `group:"SQL" namespace:"sql"`
}

func (cmd MigrateCommand) Execute([]string) error {
	logger := cmd.Logger.Logger("magpie").WithName("migrate")

	conn, err := cmd.SQL.Connect(logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := context.Background()

	logger.Info(starting)
	if err := sqlx.ApplyMigrations(ctx, logger, conn, cmd.MigrationsTableName, db.Migrations); err != nil {
		logger.Error(failedToApplyMigrations, err)
		return err
	}
	logger.Info(finished)

	return nil
}
