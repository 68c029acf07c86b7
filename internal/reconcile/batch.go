package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// ReconcileActive runs ReconcileBatch over every active account. Failing to
// list the accounts is the only error it returns; per-account failures are
// reported inside the summary.
func (s *Service) ReconcileActive(ctx context.Context, source CandidateSource) (*model.SyncSummary, error) {
	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return nil, storageError("list active accounts", err)
	}
	return s.ReconcileBatch(ctx, accounts, source), nil
}

// ReconcileBatch tracks every candidate the source reports for each account
// that the ledger does not know yet. Accounts are processed independently and
// concurrently; a failing account never aborts the others. Results follow the
// order of accounts.
func (s *Service) ReconcileBatch(ctx context.Context, accounts []model.Account, source CandidateSource) *model.SyncSummary {
	results := make([]model.AccountResult, len(accounts))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range accounts {
		i := i
		g.Go(func() error {
			results[i] = s.reconcileAccount(ctx, accounts[i], source)
			return nil
		})
	}
	_ = g.Wait()

	summary := &model.SyncSummary{
		Success:        true,
		Results:        results,
		UsersProcessed: len(accounts),
	}
	if failed := summary.FailedAccounts(); len(failed) > 0 {
		summary.Success = false
	}
	s.log.Info("batch reconciliation finished",
		zap.Int("accounts", len(accounts)),
		zap.Int("new_files", summary.NewFiles()),
		zap.Strings("failed_accounts", summary.FailedAccounts()))
	return summary
}

func (s *Service) reconcileAccount(ctx context.Context, account model.Account, source CandidateSource) model.AccountResult {
	result := model.AccountResult{User: account.Username}
	log := s.log.With(zap.String("username", account.Username))
	fail := func(err error) model.AccountResult {
		log.Warn("account reconciliation failed", zap.Error(err))
		result.Error = err.Error()
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	candidates, err := source.Candidates(ctx, account)
	if err != nil {
		return fail(fmt.Errorf("scan: %w", err))
	}
	result.FilesFound = len(candidates)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	tracked, err := s.ledger.TrackedPaths(ctx, account.ID)
	if err != nil {
		return fail(storageError("load tracked paths", err))
	}

	fresh := s.partition(&account, candidates, tracked)
	inserted, failed, err := s.insertAll(ctx, log, fresh)
	result.NewFiles = inserted
	result.FailedFiles = failed
	if err != nil {
		return fail(err)
	}
	log.Debug("account reconciled",
		zap.Int("found", result.FilesFound),
		zap.Int("new", inserted),
		zap.Int("failed", failed))
	return result
}

// partition returns the candidates whose path is not yet tracked, in source
// order. The seen set grows as candidates are accepted, so a path repeated
// within one batch is only inserted once.
func (s *Service) partition(account *model.Account, candidates []model.CandidateFile, tracked map[string]struct{}) []*model.TrackedFile {
	seen := make(map[string]struct{}, len(tracked)+len(candidates))
	for p := range tracked {
		seen[p] = struct{}{}
	}
	var fresh []*model.TrackedFile
	for _, c := range candidates {
		c.Normalize()
		if c.Filepath == "" {
			continue
		}
		if _, ok := seen[c.Filepath]; ok {
			continue
		}
		seen[c.Filepath] = struct{}{}
		fresh = append(fresh, s.newTrackedFile(account, c))
	}
	return fresh
}

// insertAll writes files with one batch request when the ledger supports it
// and falls back to row-by-row inserts otherwise. Row failures are counted,
// not returned; only cancellation stops the fallback loop early. Every row
// written is audited.
func (s *Service) insertAll(ctx context.Context, log *zap.Logger, files []*model.TrackedFile) (inserted, failed int, err error) {
	if len(files) == 0 {
		return 0, 0, nil
	}
	if batch, ok := s.ledger.(BatchLedger); ok {
		written, err := batch.InsertFiles(ctx, files)
		if err == nil {
			for _, f := range written {
				s.audit(ctx, f)
			}
			return len(written), 0, nil
		}
		log.Warn("batch insert failed, retrying row by row", zap.Int("rows", len(files)), zap.Error(err))
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return inserted, failed, err
		}
		ok, err := s.ledger.InsertFile(ctx, f)
		if err != nil {
			failed++
			log.Warn("insert file", zap.String("path", f.FilePath), zap.Error(err))
			continue
		}
		if ok {
			inserted++
			s.audit(ctx, f)
		}
	}
	return inserted, failed, nil
}
