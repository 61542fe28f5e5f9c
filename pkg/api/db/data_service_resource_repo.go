package db

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

func (ds *DataService) GetResource(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) (magpie.Resource, error) {
	logger = logger.WithName("db-get-resource")

	var resource magpie.Resource
	err := sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		var err error
		resource, err = findResource(ctx, logger, ds.conn, resourceID)
		return err
	})

	return resource, err
}

func (ds *DataService) GetPath(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) ([]magpie.Resource, error) {
	logger = logger.WithName("db-get-path")

	var path []magpie.Resource
	err := sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		var reversed []magpie.Resource

		id := resourceID
		for {
			resource, err := findResource(ctx, logger, ds.conn, id)
			if err != nil {
				return err
			}

			reversed = append(reversed, resource)
			if resource.ParentID == nil {
				break
			}
			id = *resource.ParentID
		}

		path = make([]magpie.Resource, len(reversed))
		for i, r := range reversed {
			path[len(reversed)-1-i] = r
		}
		return nil
	})

	return path, err
}

func (ds *DataService) CreateResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.CreateResourceQuery,
) (magpie.Resource, error) {
	logger = logger.WithName("db-create-resource")

	var resource magpie.Resource
	retryErr := sqlx.WithRetry(ctx, logger, ds.retry, func() (err error) {
		var tx *sqlx.Tx
		tx, err = ds.conn.BeginTx(ctx, nil)
		if err != nil {
			logger.Error(failedToStartTransaction, err)
			return
		}

		defer func() {
			err = sqlx.Commit(logger, tx, err)
		}()

		if query.ParentID == nil {
			var count int
			err = squirrel.Select("COUNT(1)").
				From("resource").
				Where(squirrel.Eq{
					"service_type": query.ServiceType,
					"parent_id":    nil,
				}).
				RunWith(tx).
				ScanContext(ctx, &count)
			if err != nil {
				logger.Error(failedToFindResource, err)
				return
			}
			if count > 0 {
				logger.Debug(errServiceRootExists)
				err = magpie.ErrServiceRootExists
				return
			}
		} else {
			var parent magpie.Resource
			parent, err = findResource(ctx, logger, tx, *query.ParentID)
			if err == magpie.ErrResourceNotFound {
				err = magpie.ErrInvalidParent
				return
			}
			if err != nil {
				return
			}
			if parent.ServiceType != query.ServiceType {
				logger.Debug(errInvalidParent)
				err = magpie.ErrInvalidParent
				return
			}
		}

		resource, err = insertResource(ctx, logger, tx, query.Name, query.ServiceType, query.ParentID, query.RemoteID)
		return
	})

	if retryErr != nil {
		return magpie.Resource{}, retryErr
	}
	return resource, nil
}

func (ds *DataService) UpdateResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.UpdateResourceQuery,
) error {
	logger = logger.WithName("db-update-resource")

	return sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		if _, err := findResource(ctx, logger, ds.conn, query.ResourceID); err != nil {
			return err
		}

		_, err := squirrel.Update("resource").
			Set("name", query.Name).
			Where(squirrel.Eq{"id": query.ResourceID}).
			RunWith(ds.conn.Conn).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToUpdateResource, err)
		}
		return err
	})
}

func (ds *DataService) DeleteResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.DeleteResourceQuery,
) ([]int64, error) {
	logger = logger.WithName("db-delete-resource")

	var deleted []int64
	retryErr := sqlx.WithRetry(ctx, logger, ds.retry, func() (err error) {
		deleted = nil

		var tx *sqlx.Tx
		tx, err = ds.conn.BeginTx(ctx, nil)
		if err != nil {
			logger.Error(failedToStartTransaction, err)
			return
		}

		defer func() {
			err = sqlx.Commit(logger, tx, err)
		}()

		if _, err = findResource(ctx, logger, tx, query.ResourceID); err != nil {
			return
		}

		// Collect the subtree level by level so the deletes can run
		// children-first under the self-referencing foreign key.
		var levels [][]int64
		frontier := []int64{query.ResourceID}
		for len(frontier) > 0 {
			levels = append(levels, frontier)

			var next []int64
			next, err = childResourceIDs(ctx, logger, tx, frontier)
			if err != nil {
				return
			}
			frontier = next
		}

		if len(levels) > 1 && !query.Cascade {
			logger.Debug(errHasChildren)
			err = magpie.ErrHasChildren
			return
		}

		for _, level := range levels {
			deleted = append(deleted, level...)
		}

		_, err = squirrel.Delete("permission_entry").
			Where(squirrel.Eq{"resource_id": deleted}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToDeleteEntries, err)
			return
		}

		for i := len(levels) - 1; i >= 0; i-- {
			_, err = squirrel.Delete("resource").
				Where(squirrel.Eq{"id": levels[i]}).
				RunWith(tx).
				ExecContext(ctx)
			if err != nil {
				logger.Error(failedToDeleteResource, err)
				return
			}
		}

		return
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return deleted, nil
}

func (ds *DataService) ListResources(
	ctx context.Context,
	logger logx.Logger,
	query repos.ListResourcesQuery,
) ([]magpie.Resource, error) {
	logger = logger.WithName("db-list-resources")

	var resources []magpie.Resource
	err := sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		resources = nil

		rows, err := squirrel.Select("id", "name", "service_type", "parent_id", "remote_id").
			From("resource").
			Where(squirrel.Eq{"service_type": query.ServiceType}).
			RunWith(ds.conn.Conn).
			QueryContext(ctx)
		if err != nil {
			logger.Error(failedToFindResource, err)
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id          int64
				name        string
				serviceType string
				parentID    sql.NullInt64
				remoteID    sql.NullString
			)
			if err := rows.Scan(&id, &name, &serviceType, &parentID, &remoteID); err != nil {
				logger.Error(failedToScanRow, err)
				return err
			}
			resources = append(resources, newResource(id, name, serviceType, parentID, remoteID))
		}

		if err := rows.Err(); err != nil {
			logger.Error(failedToIterateOverRows, err)
			return err
		}
		return nil
	})

	return resources, err
}

func childResourceIDs(
	ctx context.Context,
	logger logx.Logger,
	conn squirrel.BaseRunner,
	parentIDs []int64,
) ([]int64, error) {
	rows, err := squirrel.Select("id").
		From("resource").
		Where(squirrel.Eq{"parent_id": parentIDs}).
		RunWith(conn).
		QueryContext(ctx)
	if err != nil {
		logger.Error(failedToFindResource, err)
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logger.Error(failedToScanRow, err)
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		logger.Error(failedToIterateOverRows, err)
		return nil, err
	}
	return ids, nil
}
