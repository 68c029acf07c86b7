// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// AccountStatus mirrors the user_status enum. In Go a type declared via
// "type X string" gives the values their own type while keeping string as the
// underlying representation.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountInactive  AccountStatus = "inactive"
	AccountSuspended AccountStatus = "suspended"
)

// Account is one FTP tenant (a row in ftp_users). Accounts are deactivated,
// never hard-deleted, so their file history survives.
type Account struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	PasswordHash   string        `json:"-"`
	HomeDirectory  string        `json:"home_directory"`
	QuotaMB        int           `json:"quota_mb"`
	UsedSpaceMB    float64       `json:"used_space_mb"`
	MaxConnections int           `json:"max_connections"`
	Status         AccountStatus `json:"status"`
	IsActive       bool          `json:"is_active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
