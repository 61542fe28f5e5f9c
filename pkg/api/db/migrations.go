package db

import (
	"github.com/mishaschwartz/Magpie/pkg/api/db/migrations"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

var MigrationsTableName = "magpie_migrations"

var Migrations = []sqlx.Migration{
	{
		Name: "create_resources_table",
		Up:   migrations.CreateResourcesTableUp,
		Down: migrations.CreateResourcesTableDown,
	},
	{
		Name: "create_permission_entries_table",
		Up:   migrations.CreatePermissionEntriesTableUp,
		Down: migrations.CreatePermissionEntriesTableDown,
	},
	{
		Name: "create_memberships_table",
		Up:   migrations.CreateMembershipsTableUp,
		Down: migrations.CreateMembershipsTableDown,
	},
	{
		Name: "create_sync_state_tables",
		Up:   migrations.CreateSyncStateTablesUp,
		Down: migrations.CreateSyncStateTablesDown,
	},
}
