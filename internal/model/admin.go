package model

import "time"

// LogAction mirrors the log_action enum.
type LogAction string

const (
	ActionLogin    LogAction = "login"
	ActionLogout   LogAction = "logout"
	ActionUpload   LogAction = "upload"
	ActionDownload LogAction = "download"
	ActionDelete   LogAction = "delete"
	ActionMkdir    LogAction = "mkdir"
	ActionRmdir    LogAction = "rmdir"
)

// AccessLog is one row of access_logs.
type AccessLog struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"ftp_user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	Action       LogAction `json:"action"`
	FilePath     string    `json:"file_path,omitempty"`
	ClientIP     string    `json:"client_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ServerAction is an operator command against the server_status record.
type ServerAction string

const (
	ServerStart   ServerAction = "start"
	ServerStop    ServerAction = "stop"
	ServerRestart ServerAction = "restart"
)

// Valid reports whether a is one of the known actions.
func (a ServerAction) Valid() bool {
	switch a {
	case ServerStart, ServerStop, ServerRestart:
		return true
	}
	return false
}

// ServerStatus is the single row of server_status.
type ServerStatus struct {
	ID                 string     `json:"id"`
	ServerName         string     `json:"server_name"`
	IsRunning          bool       `json:"is_running"`
	Port               int        `json:"port"`
	CurrentConnections int        `json:"current_connections"`
	MaxConnections     int        `json:"max_connections"`
	StartTime          *time.Time `json:"start_time"`
	LastRestart        *time.Time `json:"last_restart"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DashboardStats holds the headline counters shown on the dashboard.
type DashboardStats struct {
	TotalUsers     int     `json:"totalUsers"`
	ActiveUsers    int     `json:"activeUsers"`
	TotalFiles     int     `json:"totalFiles"`
	TotalStorageMB float64 `json:"totalStorage"`
	RecentActions  int     `json:"recentActions"`
	FailedActions  int     `json:"failedActions"`
}
