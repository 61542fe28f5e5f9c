// Package db implements the engine's stores on MySQL. Every operation runs
// under the bounded retry guard in pkg/sqlx, so transient lock contention
// is absorbed and anything else surfaces to the caller.
package db

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	uuid "github.com/satori/go.uuid"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

const MySQLErrorCodeDuplicateKey = 1062

type DataService struct {
	conn  *sqlx.DB
	retry sqlx.RetryPolicy
}

func NewDataService(conn *sqlx.DB) *DataService {
	return &DataService{
		conn:  conn,
		retry: sqlx.DefaultRetryPolicy(),
	}
}

func NewDataServiceWithRetryPolicy(conn *sqlx.DB, retry sqlx.RetryPolicy) *DataService {
	return &DataService{
		conn:  conn,
		retry: retry,
	}
}

func findResource(
	ctx context.Context,
	logger logx.Logger,
	conn squirrel.BaseRunner,
	resourceID int64,
) (magpie.Resource, error) {
	logger = logger.WithName("find-resource")

	var (
		id          int64
		name        string
		serviceType string
		parentID    sql.NullInt64
		remoteID    sql.NullString
	)

	err := squirrel.Select("id", "name", "service_type", "parent_id", "remote_id").
		From("resource").
		Where(squirrel.Eq{"id": resourceID}).
		RunWith(conn).
		ScanContext(ctx, &id, &name, &serviceType, &parentID, &remoteID)

	switch err {
	case nil:
		return newResource(id, name, serviceType, parentID, remoteID), nil
	case sql.ErrNoRows:
		logger.Debug(errResourceNotFound)
		return magpie.Resource{}, magpie.ErrResourceNotFound
	default:
		logger.Error(failedToFindResource, err)
		return magpie.Resource{}, err
	}
}

func newResource(
	id int64,
	name string,
	serviceType string,
	parentID sql.NullInt64,
	remoteID sql.NullString,
) magpie.Resource {
	resource := magpie.Resource{
		ID:          id,
		Name:        name,
		ServiceType: serviceType,
	}
	if parentID.Valid {
		p := parentID.Int64
		resource.ParentID = &p
	}
	if remoteID.Valid {
		r := remoteID.String
		resource.RemoteID = &r
	}
	return resource
}

func insertResource(
	ctx context.Context,
	logger logx.Logger,
	conn squirrel.BaseRunner,
	name string,
	serviceType string,
	parentID *int64,
	remoteID *string,
) (magpie.Resource, error) {
	logger = logger.WithName("insert-resource")

	u := uuid.NewV4().Bytes()

	result, err := squirrel.Insert("resource").
		Columns("uuid", "name", "service_type", "parent_id", "remote_id").
		Values(u, name, serviceType, parentID, remoteID).
		RunWith(conn).
		ExecContext(ctx)
	if err != nil {
		logger.Error(failedToCreateResource, err)
		return magpie.Resource{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		logger.Error(failedToRetrieveID, err)
		return magpie.Resource{}, err
	}

	return magpie.Resource{
		ID:          id,
		Name:        name,
		ServiceType: serviceType,
		ParentID:    parentID,
		RemoteID:    remoteID,
	}, nil
}

func isDuplicateKey(err error) bool {
	if e, ok := err.(*mysql.MySQLError); ok {
		return e.Number == MySQLErrorCodeDuplicateKey
	}
	return false
}
