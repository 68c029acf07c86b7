package model

// IngestStatus distinguishes the two successful outcomes of a single ingest.
type IngestStatus string

const (
	IngestTracked        IngestStatus = "tracked"
	IngestAlreadyTracked IngestStatus = "already_tracked"
)

// IngestResult is returned by a successful ingest. File is only set when a
// new row was written.
type IngestResult struct {
	Status IngestStatus `json:"status"`
	File   *TrackedFile `json:"file,omitempty"`
}

// AccountResult is the per-account entry of a SyncSummary. Error is set when
// the account hit a hard failure (scan, ledger read, cancellation);
// FailedFiles counts individual rows that could not be written while the rest
// of the account still went through.
type AccountResult struct {
	User        string `json:"user"`
	FilesFound  int    `json:"filesFound"`
	NewFiles    int    `json:"newFiles"`
	FailedFiles int    `json:"failedFiles,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncSummary aggregates one batch reconciliation run. Results keep the order
// of the accounts passed in.
type SyncSummary struct {
	Success        bool            `json:"success"`
	Results        []AccountResult `json:"results"`
	UsersProcessed int             `json:"usersProcessed"`
}

// NewFiles sums the rows inserted across all accounts.
func (s *SyncSummary) NewFiles() int {
	total := 0
	for _, r := range s.Results {
		total += r.NewFiles
	}
	return total
}

// FailedAccounts lists the users whose entry carries an error.
func (s *SyncSummary) FailedAccounts() []string {
	var failed []string
	for _, r := range s.Results {
		if r.Error != "" {
			failed = append(failed, r.User)
		}
	}
	return failed
}
