package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// Touch records a read of a tracked file: last_accessed becomes the
// observation timestamp, or now. Only username and filepath are required.
// An untracked path is model.ErrNotFound.
func (s *Service) Touch(ctx context.Context, obs model.CandidateFile) error {
	obs.Normalize()
	switch {
	case obs.Username == "":
		return invalidInput(errors.New("username is required"))
	case obs.Filepath == "":
		return invalidInput(errors.New("filepath is required"))
	}
	tracker, ok := s.ledger.(AccessTracker)
	if !ok {
		return storageError("touch file", errors.New("ledger does not record access times"))
	}

	account, err := s.accounts.FindByUsername(ctx, obs.Username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrAccountNotFound
		}
		return storageError("find account", err)
	}

	at := s.clock.Now()
	if obs.Timestamp != nil && !obs.Timestamp.IsZero() {
		at = *obs.Timestamp
	}
	if err := tracker.TouchAccessed(ctx, account.ID, obs.Filepath, at.UTC()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("file %s: %w", obs.Filepath, model.ErrNotFound)
		}
		return storageError("touch file", err)
	}
	s.log.Debug("file accessed",
		zap.String("username", account.Username),
		zap.String("path", obs.Filepath))
	return nil
}
