package reconcile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// Ingest makes sure a single reported upload is tracked. It writes at most
// one row; "already tracked" and "tracked" are both successes. Errors wrap
// ErrInvalidInput, ErrAccountNotFound or ErrStorage.
func (s *Service) Ingest(ctx context.Context, obs model.CandidateFile) (*model.IngestResult, error) {
	obs.Normalize()
	if err := obs.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	account, err := s.accounts.FindByUsername(ctx, obs.Username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.log.Info("ingest for unknown user", zap.String("username", obs.Username))
			return nil, ErrAccountNotFound
		}
		return nil, storageError("find account", err)
	}

	existing, err := s.ledger.FindFile(ctx, account.ID, obs.Filepath)
	if err != nil {
		return nil, storageError("find file", err)
	}
	if existing != nil {
		s.log.Debug("file already tracked",
			zap.String("username", account.Username),
			zap.String("path", obs.Filepath))
		return &model.IngestResult{Status: model.IngestAlreadyTracked}, nil
	}

	file := s.newTrackedFile(account, obs)
	inserted, err := s.ledger.InsertFile(ctx, file)
	if err != nil {
		return nil, storageError("insert file", err)
	}
	if !inserted {
		// A concurrent ingest of the same path won the unique constraint.
		return &model.IngestResult{Status: model.IngestAlreadyTracked}, nil
	}

	s.log.Info("file tracked",
		zap.String("username", account.Username),
		zap.String("path", file.FilePath),
		zap.String("type", file.FileType),
		zap.Float64("size_mb", file.FileSizeMB))
	s.audit(ctx, file)
	return &model.IngestResult{Status: model.IngestTracked, File: file}, nil
}
