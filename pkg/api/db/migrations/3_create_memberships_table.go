package migrations

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

var createMembershipsTable = `
CREATE TABLE IF NOT EXISTS membership
(
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  user_name VARCHAR(255) NOT NULL,
  group_name VARCHAR(255) NOT NULL,
  INDEX membership_user_name_index (user_name),
  CONSTRAINT membership_unique UNIQUE (user_name, group_name)
)
`

var deleteMembershipsTable = `DROP TABLE membership`

func CreateMembershipsTableUp(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-memberships-table")
	logger.Debug(starting)
	defer logger.Debug(finished)

	_, err := tx.ExecContext(ctx, createMembershipsTable)

	return err
}

func CreateMembershipsTableDown(ctx context.Context, logger logx.Logger, tx *sqlx.Tx) error {
	logger = logger.WithName("create-memberships-table")
	logger.Debug(starting)
	defer logger.Debug(finished)

	_, err := tx.ExecContext(ctx, deleteMembershipsTable)

	return err
}
