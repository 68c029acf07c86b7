package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ftpledger/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{name: "zero value uses defaults", cfg: config.LogConfig{}},
		{name: "console encoder", cfg: config.LogConfig{Level: "debug", Format: "console"}},
		{name: "invalid level", cfg: config.LogConfig{Level: "loud"}, wantErr: true},
		{name: "invalid format", cfg: config.LogConfig{Format: "xml"}, wantErr: true},
		{name: "invalid output", cfg: config.LogConfig{Output: "syslog"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ftpledger.log")
	log, err := New(config.LogConfig{Output: "file", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("file tracked")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"file tracked"`)
}
