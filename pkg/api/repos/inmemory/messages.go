package inmemory

const (
	success = "success"

	errInvalidParent     = "invalid-parent"
	errHasChildren       = "resource-has-children"
	errServiceRootExists = "service-root-already-exists"

	errEntryAlreadyExists = "permission-entry-already-exists"
	errEntryNotFound      = "permission-entry-not-found"

	errMembershipAlreadyExists = "membership-already-exists"
	errMembershipNotFound      = "membership-not-found"
)
