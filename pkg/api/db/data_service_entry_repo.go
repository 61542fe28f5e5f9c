package db

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

func (ds *DataService) CreateEntry(
	ctx context.Context,
	logger logx.Logger,
	entry magpie.PermissionEntry,
) error {
	logger = logger.WithName("db-create-entry")

	return sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		if _, err := findResource(ctx, logger, ds.conn, entry.ResourceID); err != nil {
			return err
		}

		_, err := squirrel.Insert("permission_entry").
			Columns("resource_id", "principal_kind", "principal_name", "action_name", "access", "scope").
			Values(
				entry.ResourceID,
				string(entry.Principal.Kind),
				entry.Principal.Name,
				entry.Action,
				string(entry.Access),
				string(entry.Scope),
			).
			RunWith(ds.conn.Conn).
			ExecContext(ctx)

		if err != nil {
			if isDuplicateKey(err) {
				logger.Debug(errEntryAlreadyExists)
				return magpie.ErrEntryAlreadyExists
			}
			logger.Error(failedToCreateEntry, err)
			return err
		}

		return nil
	})
}

func (ds *DataService) DeleteEntry(
	ctx context.Context,
	logger logx.Logger,
	entry magpie.PermissionEntry,
) error {
	logger = logger.WithName("db-delete-entry")

	return sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		result, err := squirrel.Delete("permission_entry").
			Where(squirrel.Eq{
				"resource_id":    entry.ResourceID,
				"principal_kind": string(entry.Principal.Kind),
				"principal_name": entry.Principal.Name,
				"action_name":    entry.Action,
				"access":         string(entry.Access),
				"scope":          string(entry.Scope),
			}).
			RunWith(ds.conn.Conn).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToDeleteEntry, err)
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			logger.Error(failedToCountRowsAffected, err)
			return err
		}
		if n == 0 {
			logger.Debug(errEntryNotFound)
			return magpie.ErrEntryNotFound
		}

		return nil
	})
}

func (ds *DataService) ListEntries(
	ctx context.Context,
	logger logx.Logger,
	query repos.ListEntriesQuery,
) ([]magpie.PermissionEntry, error) {
	logger = logger.WithName("db-list-entries")

	if len(query.ResourceIDs) == 0 || len(query.Principals) == 0 {
		return nil, nil
	}

	principalMatch := make(squirrel.Or, len(query.Principals))
	for i, p := range query.Principals {
		principalMatch[i] = squirrel.Eq{
			"principal_kind": string(p.Kind),
			"principal_name": p.Name,
		}
	}

	where := squirrel.And{
		squirrel.Eq{"resource_id": query.ResourceIDs},
		principalMatch,
	}
	if query.Action != "" {
		where = append(where, squirrel.Eq{"action_name": query.Action})
	}

	var entries []magpie.PermissionEntry
	err := sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		entries = nil

		rows, err := squirrel.Select("resource_id", "principal_kind", "principal_name", "action_name", "access", "scope").
			From("permission_entry").
			Where(where).
			RunWith(ds.conn.Conn).
			QueryContext(ctx)
		if err != nil {
			logger.Error(failedToFindEntries, err)
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				resourceID    int64
				principalKind string
				principalName string
				actionName    string
				access        string
				scope         string
			)
			if err := rows.Scan(&resourceID, &principalKind, &principalName, &actionName, &access, &scope); err != nil {
				logger.Error(failedToScanRow, err)
				return err
			}
			entries = append(entries, magpie.PermissionEntry{
				ResourceID: resourceID,
				Principal: magpie.Principal{
					Kind: magpie.PrincipalKind(principalKind),
					Name: principalName,
				},
				Action: actionName,
				Access: magpie.Access(access),
				Scope:  magpie.Scope(scope),
			})
		}

		if err := rows.Err(); err != nil {
			logger.Error(failedToIterateOverRows, err)
			return err
		}
		return nil
	})

	return entries, err
}

func (ds *DataService) DeleteEntriesForResources(
	ctx context.Context,
	logger logx.Logger,
	resourceIDs []int64,
) error {
	logger = logger.WithName("db-delete-entries-for-resources")

	if len(resourceIDs) == 0 {
		return nil
	}

	return sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		_, err := squirrel.Delete("permission_entry").
			Where(squirrel.Eq{"resource_id": resourceIDs}).
			RunWith(ds.conn.Conn).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToDeleteEntries, err)
		}
		return err
	})
}
