package syncer

const (
	starting = "starting"
	finished = "finished"

	failedToFetchListing  = "failed-to-fetch-remote-listing"
	failedToDecodeListing = "failed-to-decode-remote-listing"
	syncPassFailed        = "sync-pass-failed"

	errNotOrphan = "resource-not-orphan"
)

const (
	metricSyncSuccess = "magpie.sync.success"
	metricSyncFailure = "magpie.sync.failure"
	metricSyncOrphans = "magpie.sync.orphans"
	metricCleaned     = "magpie.sync.cleaned"
)
