package main

const (
	starting = "starting"
	finished = "finished"

	failedToOpenSQLConnection = "failed-to-open-sql-connection"
	failedToApplyMigrations   = "failed-to-apply-migrations"
	failedToConnectToStatsd   = "failed-to-connect-to-statsd"
	failedToReadCertificate   = "failed-to-read-certificate"
	failedToAppendCertToPool  = "failed-to-append-cert-to-pool"

	syncPassFailed = "sync-pass-failed"
)
