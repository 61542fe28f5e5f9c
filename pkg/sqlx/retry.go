package sqlx

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"

	"github.com/mishaschwartz/Magpie/pkg/logx"
)

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrLockDeadlock    = 1213
)

// RetryPolicy bounds how often a storage operation is re-attempted when it
// fails with a transient error. MaxRetries is the number of re-attempts
// after the initial one.
type RetryPolicy struct {
	MaxRetries uint64
	Interval   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Interval:   50 * time.Millisecond,
	}
}

// WithRetry runs fn, re-attempting it per policy while it fails with a
// transient MySQL error (deadlock, lock wait timeout). Any other error is
// surfaced immediately; on exhaustion the last error is surfaced.
func WithRetry(ctx context.Context, logger logx.Logger, policy RetryPolicy, fn func() error) error {
	logger = logger.WithName("with-retry")

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		logger.Debug(retryingTransientError, logx.Data{Key: "error", Value: err.Error()})
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), policy.MaxRetries),
		ctx,
	)

	return backoff.Retry(operation, b)
}

func isTransient(err error) bool {
	if e, ok := err.(*mysql.MySQLError); ok {
		return e.Number == mysqlErrLockDeadlock || e.Number == mysqlErrLockWaitTimeout
	}
	return false
}
