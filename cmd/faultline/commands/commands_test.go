package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/config"
)

func TestParseLogLevelFlags(t *testing.T) {
	tests := []struct {
		name        string
		flags       []string
		environ     []string
		wantDefault string
		wantPkgs    map[string]string
		wantErr     bool
	}{
		{
			name:        "default only",
			flags:       []string{"debug"},
			wantDefault: "debug",
			wantPkgs:    map[string]string{},
		},
		{
			name:        "package override",
			flags:       []string{"info", "analysis.clustering=debug"},
			wantDefault: "info",
			wantPkgs:    map[string]string{"analysis.clustering": "debug"},
		},
		{
			name:        "env var",
			environ:     []string{"LOG_LEVEL_STORE_REDIS=warn", "HOME=/root"},
			wantDefault: "info",
			wantPkgs:    map[string]string{"store.redis": "warn"},
		},
		{
			name:        "flag beats env",
			flags:       []string{"store.redis=error"},
			environ:     []string{"LOG_LEVEL_STORE_REDIS=warn"},
			wantDefault: "info",
			wantPkgs:    map[string]string{"store.redis": "error"},
		},
		{
			name:    "invalid default",
			flags:   []string{"loud"},
			wantErr: true,
		},
		{
			name:    "invalid package level",
			flags:   []string{"api=verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, pkgs, err := parseLogLevelFlags(tt.flags, tt.environ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, def)
			assert.Equal(t, tt.wantPkgs, pkgs)
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPolicyInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")

	out, err := execute(t, "policy", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default policy")

	loaded, err := config.LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPolicy(), *loaded)

	_, err = execute(t, "policy", "init", path)
	assert.ErrorContains(t, err, "already exists")

	out, err = execute(t, "policy", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	payload := `[
  {"id": 1, "type": "TimeoutError", "user": "alice", "timestamp": "05.03.2024 09:00:00", "severity": "high", "content": "request timed out"},
  {"id": 2, "type": "TimeoutError", "user": "alice", "timestamp": "05.03.2024 09:05:00", "severity": "high", "content": "request timed out"},
  {"id": 3, "type": "TimeoutError", "user": "alice", "timestamp": "05.03.2024 09:10:00", "severity": "critical", "content": "request timed out"},
  {"id": 4, "type": "IOException", "user": "bob", "timestamp": "05.03.2024 11:00:00", "severity": "low", "content": "disk full"},
  {"id": 5, "type": "Broken", "user": "bob", "timestamp": "05.03.2024 11:00:00", "severity": "urgent"}
]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	return path
}

func TestAnalyze_JSON(t *testing.T) {
	path := writeRecords(t)

	out, err := execute(t, "analyze", "--output", "json", path)
	require.NoError(t, err)

	var rep map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.EqualValues(t, 4, rep["record_count"])
	assert.Len(t, rep["diagnostics"], 1)
	assert.NotEmpty(t, rep["run_id"])
}

func TestAnalyze_Text(t *testing.T) {
	path := writeRecords(t)

	out, err := execute(t, "analyze", "--output", "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Error analytics report")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Excluded records (1)")
}

func TestAnalyze_InvalidOutput(t *testing.T) {
	_, err := execute(t, "analyze", "--output", "yaml", writeRecords(t))
	assert.ErrorContains(t, err, "invalid output format")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "faultline "+Version)
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.StoreKind = config.StoreFile
	cfg.StorePath = writeRecords(t)
	st, err := openStore(cfg)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cfg.StoreKind = "memory"
	_, err = openStore(cfg)
	assert.ErrorContains(t, err, "unknown store")
}
