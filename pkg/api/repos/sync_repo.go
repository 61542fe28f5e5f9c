package repos

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

//go:generate counterfeiter . SyncRepo

type SyncRepo interface {
	GetSyncState(
		ctx context.Context,
		logger logx.Logger,
		serviceType string,
	) (magpie.SyncState, error)

	// PutSyncState replaces the stored state for the service wholesale.
	PutSyncState(
		ctx context.Context,
		logger logx.Logger,
		state magpie.SyncState,
	) error
}

// Store is the full persistence surface required by the engine.
type Store interface {
	ResourceRepo
	PermissionEntryRepo
	MembershipRepo
	SyncRepo
}
