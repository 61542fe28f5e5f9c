package db

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

func (ds *DataService) SetMembership(
	ctx context.Context,
	logger logx.Logger,
	user string,
	group string,
) error {
	logger = logger.WithName("db-set-membership")

	return sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		_, err := squirrel.Insert("membership").
			Columns("user_name", "group_name").
			Values(user, group).
			RunWith(ds.conn.Conn).
			ExecContext(ctx)

		if err != nil {
			if isDuplicateKey(err) {
				logger.Debug(errMembershipAlreadyExists)
				return magpie.ErrMembershipAlreadyExists
			}
			logger.Error(failedToCreateMembership, err)
			return err
		}

		return nil
	})
}

func (ds *DataService) UnsetMembership(
	ctx context.Context,
	logger logx.Logger,
	user string,
	group string,
) error {
	logger = logger.WithName("db-unset-membership")

	return sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		result, err := squirrel.Delete("membership").
			Where(squirrel.Eq{
				"user_name":  user,
				"group_name": group,
			}).
			RunWith(ds.conn.Conn).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToDeleteMembership, err)
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			logger.Error(failedToCountRowsAffected, err)
			return err
		}
		if n == 0 {
			logger.Debug(errMembershipNotFound)
			return magpie.ErrMembershipNotFound
		}

		return nil
	})
}

func (ds *DataService) ListGroups(
	ctx context.Context,
	logger logx.Logger,
	user string,
) ([]string, error) {
	logger = logger.WithName("db-list-groups")

	var groups []string
	err := sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		groups = nil

		rows, err := squirrel.Select("group_name").
			From("membership").
			Where(squirrel.Eq{"user_name": user}).
			OrderBy("group_name").
			RunWith(ds.conn.Conn).
			QueryContext(ctx)
		if err != nil {
			logger.Error(failedToFindMemberships, err)
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var group string
			if err := rows.Scan(&group); err != nil {
				logger.Error(failedToScanRow, err)
				return err
			}
			groups = append(groups, group)
		}

		if err := rows.Err(); err != nil {
			logger.Error(failedToIterateOverRows, err)
			return err
		}
		return nil
	})

	return groups, err
}
