package source

import (
	"context"
	"fmt"

	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

// FromConfig builds the candidate source named by cfg.SyncSource. The minio
// source creates its bucket when missing.
func FromConfig(ctx context.Context, cfg *config.Config) (reconcile.CandidateSource, error) {
	switch cfg.SyncSource {
	case config.SourceFilesystem:
		return NewFilesystem(cfg.SyncFSRoot), nil
	case config.SourceStatic:
		return Static{}, nil
	case config.SourceMinio:
		client, err := NewMinioClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := EnsureBucket(ctx, client, cfg.FTPBucket, cfg.S3Region); err != nil {
			return nil, err
		}
		return NewObjectStore(client, cfg.FTPBucket), nil
	default:
		return nil, fmt.Errorf("unknown candidate source %q", cfg.SyncSource)
	}
}
