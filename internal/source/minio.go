package source

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// ObjectLister is the part of *minio.Client the object store source needs.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// ObjectStore lists files an FTP front end mirrors into a bucket, one prefix
// per account: <bucket>/<username>/<relative path>.
type ObjectStore struct {
	client ObjectLister
	bucket string
}

// NewObjectStore wraps an existing lister.
func NewObjectStore(client ObjectLister, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// NewMinioClient creates a MinIO client from the Config.
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return client, nil
}

// EnsureBucket makes sure the FTP bucket exists before the first scan.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// Candidates lists every object under the account's prefix. Object keys are
// mapped under the account's home directory; directory markers are skipped.
func (s *ObjectStore) Candidates(ctx context.Context, account model.Account) ([]model.CandidateFile, error) {
	prefix := account.Username + "/"
	home := cleanHome(account.HomeDirectory)
	if home == "" {
		home = "/" + account.Username
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the listing goroutine on early return

	var out []model.CandidateFile
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		modified := obj.LastModified.UTC()
		c := model.CandidateFile{
			Username: account.Username,
			Filename: path.Base(rel),
			Filepath: path.Join(home, rel),
			Filesize: float64(obj.Size),
		}
		if !modified.IsZero() {
			c.Timestamp = &modified
		}
		out = append(out, c)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
