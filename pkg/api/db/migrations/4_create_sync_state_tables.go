package migrations

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

var createSyncStatesTable = `
CREATE TABLE IF NOT EXISTS sync_state
(
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  service_type VARCHAR(255) NOT NULL UNIQUE,
  last_sync_at DATETIME NOT NULL
)
`

// known_remote_ids is kept in a joined table so large listings do not blow
// up a single row.
var createSyncStateRemoteIDsTable = `
CREATE TABLE IF NOT EXISTS sync_state_remote_id
(
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  service_type VARCHAR(255) NOT NULL,
  remote_id VARCHAR(255) NOT NULL,
  INDEX sync_state_remote_id_service_type_index (service_type),
  CONSTRAINT sync_state_remote_id_unique UNIQUE (service_type, remote_id)
)
`

var deleteSyncStatesTable = `DROP TABLE sync_state`
var deleteSyncStateRemoteIDsTable = `DROP TABLE sync_state_remote_id`

func CreateSyncStateTablesUp(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-sync-state-tables")
	logger.Debug(starting)
	defer logger.Debug(finished)

	if _, err := tx.ExecContext(ctx, createSyncStatesTable); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, createSyncStateRemoteIDsTable)

	return err
}

func CreateSyncStateTablesDown(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-sync-state-tables")
	logger.Debug(starting)
	defer logger.Debug(finished)

	if _, err := tx.ExecContext(ctx, deleteSyncStateRemoteIDsTable); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, deleteSyncStatesTable)

	return err
}
