package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://h:9090/api", "-d", "s.db", "-t", "7", "-o", "out", "-l", "warn"},
			expected: &Config{APIBaseURL: "http://h:9090/api", SessionDBPath: "s.db",
				HTTPTimeout: 7 * time.Second, DownloadDir: "out", LogLevel: "warn"},
		},
		{
			name:     "unknown flags ignored",
			args:     []string{"-c", "x.json", "-x", "-a", "http://h/api"},
			expected: &Config{APIBaseURL: "http://h/api"},
		},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
