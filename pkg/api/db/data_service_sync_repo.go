package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

func (ds *DataService) GetSyncState(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) (magpie.SyncState, error) {
	logger = logger.WithName("db-get-sync-state")

	var state magpie.SyncState
	err := sqlx.WithRetry(ctx, logger, ds.retry, func() error {
		var lastSyncAt time.Time

		err := squirrel.Select("last_sync_at").
			From("sync_state").
			Where(squirrel.Eq{"service_type": serviceType}).
			RunWith(ds.conn.Conn).
			ScanContext(ctx, &lastSyncAt)

		switch err {
		case nil:
		case sql.ErrNoRows:
			logger.Debug(errSyncStateNotFound)
			return magpie.ErrSyncStateNotFound
		default:
			logger.Error(failedToFindSyncState, err)
			return err
		}

		known, err := findKnownRemoteIDs(ctx, logger, ds.conn, serviceType)
		if err != nil {
			return err
		}

		state = magpie.SyncState{
			ServiceType:    serviceType,
			LastSyncAt:     lastSyncAt,
			KnownRemoteIDs: known,
		}
		return nil
	})

	return state, err
}

func (ds *DataService) PutSyncState(
	ctx context.Context,
	logger logx.Logger,
	state magpie.SyncState,
) error {
	logger = logger.WithName("db-put-sync-state")

	return sqlx.WithRetry(ctx, logger, ds.retry, func() (err error) {
		var tx *sqlx.Tx
		tx, err = ds.conn.BeginTx(ctx, nil)
		if err != nil {
			logger.Error(failedToStartTransaction, err)
			return
		}

		defer func() {
			err = sqlx.Commit(logger, tx, err)
		}()

		_, err = squirrel.Insert("sync_state").
			Columns("service_type", "last_sync_at").
			Values(state.ServiceType, state.LastSyncAt).
			Suffix("ON DUPLICATE KEY UPDATE last_sync_at = VALUES(last_sync_at)").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToPutSyncState, err)
			return
		}

		_, err = squirrel.Delete("sync_state_remote_id").
			Where(squirrel.Eq{"service_type": state.ServiceType}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			logger.Error(failedToPutSyncState, err)
			return
		}

		if len(state.KnownRemoteIDs) == 0 {
			return
		}

		insert := squirrel.Insert("sync_state_remote_id").
			Columns("service_type", "remote_id")
		for remoteID := range state.KnownRemoteIDs {
			insert = insert.Values(state.ServiceType, remoteID)
		}

		_, err = insert.RunWith(tx).ExecContext(ctx)
		if err != nil {
			logger.Error(failedToPutSyncState, err)
		}
		return
	})
}

func findKnownRemoteIDs(
	ctx context.Context,
	logger logx.Logger,
	conn *sqlx.DB,
	serviceType string,
) (map[string]struct{}, error) {
	rows, err := squirrel.Select("remote_id").
		From("sync_state_remote_id").
		Where(squirrel.Eq{"service_type": serviceType}).
		RunWith(conn.Conn).
		QueryContext(ctx)
	if err != nil {
		logger.Error(failedToFindSyncState, err)
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var remoteID string
		if err := rows.Scan(&remoteID); err != nil {
			logger.Error(failedToScanRow, err)
			return nil, err
		}
		known[remoteID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		logger.Error(failedToIterateOverRows, err)
		return nil, err
	}
	return known, nil
}
