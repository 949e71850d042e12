package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Online())
	assert.Equal(t, 2*time.Second, cfg.Engine.SettleDelay)
	assert.Equal(t, "Tiger", cfg.Operator.Name)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
remote:
  base_url: https://example.supabase.co/functions/v1
  anon_key: anon
engine:
  settle_delay: 500ms
log:
  format: json
`))
	require.NoError(t, err)
	assert.True(t, cfg.Online())
	assert.Equal(t, "anon", cfg.Remote.AnonKey)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.SettleDelay)
	assert.Equal(t, "127.0.0.1:7420", cfg.Server.Addr)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad url":      "remote:\n  base_url: ftp://x\n",
		"bad identity": "identity:\n  url: not a url\n",
		"negative":     "engine:\n  settle_delay: -1s\n",
		"format":       "log:\n  format: xml\n",
		"base path":    "server:\n  base_path: v0\n",
		"invalid yaml": "remote: [",
		"bad duration": "engine:\n  settle_delay: soon\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndLoadOptional(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	assert.ErrorContains(t, err, "not found")

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("operator:\n  name: Ops\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Ops", cfg.Operator.Name)
	assert.Equal(t, "🐯", cfg.Operator.Emoji)
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
