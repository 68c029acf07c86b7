package reconcile

import (
	"errors"
	"fmt"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

var (
	// ErrInvalidInput marks an observation that cannot be decoded or is
	// missing required fields. It is a caller error and is never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAccountNotFound marks a login name that resolves to zero or more than
	// one account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrStorage marks a ledger or account directory failure. Every write is
	// guarded by the (account, path) uniqueness check, so retrying is safe.
	ErrStorage = errors.New("storage error")
	// ErrPartialBatchFailure is reported when some accounts of a batch failed
	// while others went through.
	ErrPartialBatchFailure = errors.New("partial batch failure")
)

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// PartialFailure returns an ErrPartialBatchFailure naming the failed accounts,
// or nil when every account of the summary succeeded.
func PartialFailure(summary *model.SyncSummary) error {
	failed := summary.FailedAccounts()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d accounts failed: %v", ErrPartialBatchFailure, len(failed), len(summary.Results), failed)
}
