package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.Model = "custom-model"
	cfg.TestCommand = []string{"go", "test", "./..."}
	require.NoError(t, cfg.Save(path))

	// Reload through the same JSON schema
	loaded := DefaultConfig()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, loaded))

	assert.Equal(t, "custom-model", loaded.Model)
	assert.Equal(t, []string{"go", "test", "./..."}, loaded.TestCommand)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty analyze command", mutate: func(c *Config) { c.AnalyzeCommand = nil }},
		{name: "empty test command", mutate: func(c *Config) { c.TestCommand = nil }},
		{name: "zero timeout", mutate: func(c *Config) { c.TestTimeoutSecs = 0 }},
		{name: "empty model", mutate: func(c *Config) { c.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
