package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	t.Setenv("LV_STR", "  hello ")
	t.Setenv("LV_INT", "42")
	t.Setenv("LV_BAD_INT", "forty-two")
	t.Setenv("LV_BOOL", "true")
	t.Setenv("LV_DUR", "1m30s")
	t.Setenv("LV_SECS", "2.5")

	assert.Equal(t, "hello", GetEnv("LV_STR"))
	assert.Equal(t, "hello", GetStringOrDefault("LV_STR", "x"))
	assert.Equal(t, "x", GetStringOrDefault("LV_MISSING", "x"))
	assert.Equal(t, 42, GetIntOrDefault("LV_INT", 1))
	assert.Equal(t, 1, GetIntOrDefault("LV_BAD_INT", 1))
	assert.True(t, GetBoolOrDefault("LV_BOOL", false))
	assert.False(t, GetBoolOrDefault("LV_MISSING", false))
	assert.Equal(t, 90*time.Second, GetDurationOrDefault("LV_DUR", time.Second))
	assert.Equal(t, 2500*time.Millisecond, GetDurationOrDefault("LV_SECS", time.Second))
	assert.Equal(t, time.Second, GetDurationOrDefault("LV_MISSING", time.Second))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	assert.Error(t, LoadEnv("test"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte("LV_FROM_FILE=mode\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LV_FROM_FILE=base\nLV_ONLY_BASE=1\n"), 0o644))
	t.Setenv("LV_FROM_FILE", "")
	os.Unsetenv("LV_FROM_FILE")
	t.Setenv("LV_ONLY_BASE", "")
	os.Unsetenv("LV_ONLY_BASE")

	require.NoError(t, LoadEnv("test"))
	assert.Equal(t, "mode", os.Getenv("LV_FROM_FILE"))
	assert.Equal(t, "1", os.Getenv("LV_ONLY_BASE"))
}
