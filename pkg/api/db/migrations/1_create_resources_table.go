package migrations

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

var createResourcesTable = `
CREATE TABLE IF NOT EXISTS resource
(
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  uuid BINARY(16) NOT NULL UNIQUE,
  name VARCHAR(255) NOT NULL,
  service_type VARCHAR(255) NOT NULL,
  parent_id BIGINT NULL,
  remote_id VARCHAR(255) NULL,
  INDEX resource_service_type_index (service_type),
  INDEX resource_parent_id_index (parent_id),
  CONSTRAINT resource_parent_fk FOREIGN KEY (parent_id) REFERENCES resource (id)
)
`

var deleteResourcesTable = `DROP TABLE resource`

func CreateResourcesTableUp(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-resources-table")
	logger.Debug(starting)
	defer logger.Debug(finished)

	_, err := tx.ExecContext(ctx, createResourcesTable)

	return err
}

func CreateResourcesTableDown(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-resources-table")
	logger.Debug(starting)
	defer logger.Debug(finished)

	_, err := tx.ExecContext(ctx, deleteResourcesTable)

	return err
}
