// Package source provides the candidate sources batch reconciliation reads
// from: a directory walker, an object store lister and a fixed demo listing.
package source

import (
	"context"
	"path"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// StaticRoot is the directory the static source places its files under.
const StaticRoot = "/home/vsftpd"

var staticFiles = []struct {
	name string
	size float64
}{
	{"test-image.jpg", 2048000},
	{"document.pdf", 1024000},
	{"data.txt", 512000},
}

// Static reports the same three demo files for every account. It is useful
// for wiring checks against a dashboard without a real FTP tree.
type Static struct{}

// Candidates lists the demo files under StaticRoot/<username>.
func (Static) Candidates(_ context.Context, account model.Account) ([]model.CandidateFile, error) {
	out := make([]model.CandidateFile, 0, len(staticFiles))
	for _, f := range staticFiles {
		out = append(out, model.CandidateFile{
			Username: account.Username,
			Filename: f.name,
			Filepath: path.Join(StaticRoot, account.Username, f.name),
			Filesize: f.size,
		})
	}
	return out, nil
}
