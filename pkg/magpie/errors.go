package magpie

import (
	"errors"

	"github.com/mishaschwartz/Magpie/pkg/errdefs"
)

var (
	ErrResourceNotFound  = errdefs.NewErrNotFound("resource")
	ErrServiceNotFound   = errdefs.NewErrNotFound("service")
	ErrSyncStateNotFound = errdefs.NewErrNotFound("sync-state")

	ErrEntryNotFound      = errdefs.NewErrNotFound("permission-entry")
	ErrEntryAlreadyExists = errdefs.NewErrAlreadyExists("permission-entry")

	ErrMembershipNotFound      = errdefs.NewErrNotFound("membership")
	ErrMembershipAlreadyExists = errdefs.NewErrAlreadyExists("membership")

	ErrServiceRootExists = errdefs.NewErrAlreadyExists("service-root")

	ErrInvalidParent = errdefs.NewErrInvalid("resource", "parent does not exist or belongs to a different service")
	ErrHasChildren   = errdefs.NewErrInvalid("resource", "resource has children")
	ErrNotOrphan     = errdefs.NewErrInvalid("resource", "resource is not flagged out of sync")

	ErrSyncInProgress = errors.New("magpie: sync already in progress for service")
)
