package sqlx

import "github.com/mishaschwartz/Magpie/pkg/logx"

// Commit finalizes a transaction: if err is non-nil the transaction is
// rolled back and err returned, otherwise it is committed.
func Commit(logger logx.Logger, tx *Tx, err error) error {
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			logger.Error(failedToRollback, rollbackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		logger.Error(failedToCommit, err)
		return err
	}

	logger.Debug(committed)
	return nil
}
