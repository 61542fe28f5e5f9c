package db

const (
	failedToStartTransaction = "failed-to-start-transaction"

	failedToRetrieveID        = "failed-to-retrieve-id"
	failedToCountRowsAffected = "failed-to-count-rows-affected"
	failedToScanRow           = "failed-to-scan-row"
	failedToIterateOverRows   = "failed-to-iterate-over-rows"

	errResourceNotFound  = "resource-not-found"
	errInvalidParent     = "invalid-parent"
	errHasChildren       = "resource-has-children"
	errServiceRootExists = "service-root-already-exists"

	failedToCreateResource = "failed-to-create-resource"
	failedToFindResource   = "failed-to-find-resource"
	failedToUpdateResource = "failed-to-update-resource"
	failedToDeleteResource = "failed-to-delete-resource"

	errEntryAlreadyExists = "permission-entry-already-exists"
	errEntryNotFound      = "permission-entry-not-found"

	failedToCreateEntry   = "failed-to-create-permission-entry"
	failedToDeleteEntry   = "failed-to-delete-permission-entry"
	failedToDeleteEntries = "failed-to-delete-permission-entries"
	failedToFindEntries   = "failed-to-find-permission-entries"

	errMembershipAlreadyExists = "membership-already-exists"
	errMembershipNotFound      = "membership-not-found"

	failedToCreateMembership = "failed-to-create-membership"
	failedToDeleteMembership = "failed-to-delete-membership"
	failedToFindMemberships  = "failed-to-find-memberships"

	errSyncStateNotFound = "sync-state-not-found"

	failedToFindSyncState = "failed-to-find-sync-state"
	failedToPutSyncState  = "failed-to-put-sync-state"
)
