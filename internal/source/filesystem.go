package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// Filesystem walks each account's home directory. When Root is set, home
// directories are resolved beneath it, so /home/alice with Root /srv/ftp is
// read from /srv/ftp/home/alice. Reported paths are always the account's own
// view (home directory plus relative path).
type Filesystem struct {
	Root string
}

// NewFilesystem returns a Filesystem source rooted at root ("" reads home
// directories as they are).
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{Root: root}
}

// Candidates lists every regular file below the account's home directory,
// skipping dot-files and dot-directories. A missing home directory yields no
// candidates.
func (s *Filesystem) Candidates(ctx context.Context, account model.Account) ([]model.CandidateFile, error) {
	home := cleanHome(account.HomeDirectory)
	if home == "" {
		return nil, fmt.Errorf("account %s has no home directory", account.Username)
	}
	dir, err := s.resolve(home)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", home, err)
	}

	var out []model.CandidateFile
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between listing and stat.
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		mtime := info.ModTime().UTC()
		out = append(out, model.CandidateFile{
			Username:  account.Username,
			Filename:  d.Name(),
			Filepath:  path.Join(home, filepath.ToSlash(rel)),
			Filesize:  float64(info.Size()),
			Timestamp: &mtime,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return out, nil
}

func (s *Filesystem) resolve(home string) (string, error) {
	if s.Root == "" {
		return filepath.FromSlash(home), nil
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	return joinWithinRoot(root, home)
}

// cleanHome returns home as a clean absolute slash path, or "" when empty.
func cleanHome(home string) string {
	home = strings.TrimSpace(strings.ReplaceAll(home, "\\", "/"))
	if home == "" {
		return ""
	}
	return path.Clean("/" + home)
}

// joinWithinRoot places rel beneath rootAbs and rejects anything that would
// end up outside it.
func joinWithinRoot(rootAbs, rel string) (string, error) {
	if strings.Contains(rel, "\x00") {
		return "", errors.New("invalid path")
	}
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	abs := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	root := filepath.Clean(rootAbs)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", errors.New("path escape")
	}
	return abs, nil
}
