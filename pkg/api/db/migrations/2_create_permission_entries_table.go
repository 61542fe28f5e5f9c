package migrations

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

var createPermissionEntriesTable = `
CREATE TABLE IF NOT EXISTS permission_entry
(
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  resource_id BIGINT NOT NULL,
  principal_kind VARCHAR(16) NOT NULL,
  principal_name VARCHAR(255) NOT NULL,
  action_name VARCHAR(255) NOT NULL,
  access VARCHAR(8) NOT NULL,
  scope VARCHAR(16) NOT NULL,
  INDEX permission_entry_resource_id_index (resource_id),
  CONSTRAINT permission_entry_resource_fk FOREIGN KEY (resource_id) REFERENCES resource (id),
  CONSTRAINT permission_entry_unique
    UNIQUE (resource_id, principal_kind, principal_name, action_name, access, scope)
)
`

var deletePermissionEntriesTable = `DROP TABLE permission_entry`

func CreatePermissionEntriesTableUp(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-permission-entries-table")
	logger.Debug(starting)
	defer logger.Debug(finished)

	_, err := tx.ExecContext(ctx, createPermissionEntriesTable)

	return err
}

func CreatePermissionEntriesTableDown(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-permission-entries-table")
	logger.Debug(starting)
	defer logger.Debug(finished)

	_, err := tx.ExecContext(ctx, deletePermissionEntriesTable)

	return err
}
