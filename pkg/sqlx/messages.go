package sqlx

const (
	starting = "starting"
	finished = "finished"

	committed        = "committed"
	failedToCommit   = "failed-to-commit"
	failedToRollback = "failed-to-rollback"

	failedToStartTransaction   = "failed-to-start-transaction"
	failedToCreateTable        = "failed-to-create-migrations-table"
	failedToApplyMigration     = "failed-to-apply-migration"
	skippedAppliedMigration    = "skipped-applied-migration"
	retrievedAppliedMigrations = "retrieved-applied-migrations"

	failedToScanAppliedMigration = "failed-to-scan-applied-migration"
	failedToQueryMigrations      = "failed-to-query-migrations"

	retryingTransientError = "retrying-transient-storage-error"
)
