package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// TrackedFile is one row of the ledger (user_files). The pair
// (AccountID, FilePath) is unique.
type TrackedFile struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"ftp_user_id"`
	FileName     string     `json:"file_name"`
	FilePath     string     `json:"file_path"`
	FileSizeMB   float64    `json:"file_size_mb"`
	FileType     string     `json:"file_type"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	LastAccessed *time.Time `json:"last_accessed"`
	// Username is filled by listing queries that join ftp_users.
	Username string `json:"username,omitempty"`
}

// CandidateFile is an unpersisted observation of a file, either pushed by the
// FTP event notifier or produced by a candidate source. The JSON names match
// the notifier's payload.
type CandidateFile struct {
	Username  string     `json:"username"`
	Filename  string     `json:"filename"`
	Filepath  string     `json:"filepath"`
	Filesize  float64    `json:"filesize"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// timestampLayouts are tried in order. Values without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp as sent by the notifier. An
// empty string yields nil, meaning "now".
func ParseTimestamp(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// UnmarshalJSON decodes the notifier payload, reading timestamp as an
// ISO-8601 string instead of strict RFC 3339.
func (c *CandidateFile) UnmarshalJSON(data []byte) error {
	type plain CandidateFile
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Timestamp = nil
	if aux.Timestamp == nil {
		return nil
	}
	ts, err := ParseTimestamp(*aux.Timestamp)
	if err != nil {
		return err
	}
	c.Timestamp = ts
	return nil
}

// Normalize trims the identifying fields and derives a missing file name from
// the path.
func (c *CandidateFile) Normalize() {
	c.Username = strings.TrimSpace(c.Username)
	c.Filepath = strings.TrimSpace(c.Filepath)
	c.Filename = strings.TrimSpace(c.Filename)
	if c.Filename == "" && c.Filepath != "" {
		c.Filename = path.Base(c.Filepath)
	}
}

// Validate reports the first missing or out-of-range field.
func (c CandidateFile) Validate() error {
	switch {
	case c.Username == "":
		return errors.New("username is required")
	case c.Filepath == "":
		return errors.New("filepath is required")
	case c.Filename == "":
		return errors.New("filename is required")
	case c.Filesize < 0:
		return errors.New("filesize must not be negative")
	}
	return nil
}
