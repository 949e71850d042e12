package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/domain"
)

func TestSetEnvValueReplacesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\nOPSDECK_TOKEN=old\n"), 0o600))

	require.NoError(t, setEnvValue(path, tokenKey, "new"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OTHER=1\nOPSDECK_TOKEN=new\n", string(data))
}

func TestStoredTokenReadsWorkspaceEnv(t *testing.T) {
	workspace := t.TempDir()
	assert.Empty(t, storedToken(workspace))

	require.NoError(t, persistToken(workspace, "abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", storedToken(workspace))

	require.NoError(t, persistToken(workspace, ""))
	assert.Empty(t, storedToken(workspace))
}

func TestRelativeTimeKeepsUnparseable(t *testing.T) {
	assert.Equal(t, "just now", relativeTime("just now"))
}

func TestFieldTableRendersEntity(t *testing.T) {
	tw := newFieldTable(domain.Task{ID: "task-1", Title: "Ship it", Status: domain.TaskReview, Tags: []string{"a", "b"}})
	require.NotNil(t, tw)
	out := tw.Render()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "Ship it")
	assert.Contains(t, out, "review")
	assert.Contains(t, out, `["a","b"]`)

	assert.Nil(t, newFieldTable([]string{"not", "an", "object"}))
}
