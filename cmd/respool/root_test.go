package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("refills with flag values", func(t *testing.T) {
		out, err := execute(t, "--backend", "memory", "--min-available", "3", "--buffer", "1", "refill")

		require.NoError(t, err)
		assert.Contains(t, out, "New resource count: 4")
	})

	t.Run("honors a zero buffer", func(t *testing.T) {
		out, err := execute(t, "--backend", "memory", "--min-available", "3", "--buffer", "0", "refill")

		require.NoError(t, err)
		assert.Contains(t, out, "New resource count: 3")
	})

	t.Run("reads the environment", func(t *testing.T) {
		t.Setenv("RESPOOL_BACKEND", "memory")
		t.Setenv("RESPOOL_MIN_AVAILABLE", "4")

		out, err := execute(t, "refill")

		require.NoError(t, err)
		assert.Contains(t, out, "New resource count: 6")
	})

	t.Run("reads a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "respool.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend: memory\nmin-available: 1\nbuffer: 1\n"), 0o600))

		out, err := execute(t, "--config", path, "refill")

		require.NoError(t, err)
		assert.Contains(t, out, "New resource count: 2")
	})

	t.Run("flags win over the environment", func(t *testing.T) {
		t.Setenv("RESPOOL_MIN_AVAILABLE", "9")

		out, err := execute(t, "--backend", "memory", "--min-available", "1", "--buffer", "1", "refill")

		require.NoError(t, err)
		assert.Contains(t, out, "New resource count: 2")
	})

	t.Run("allocating from an empty pool fails", func(t *testing.T) {
		_, err := execute(t, "--backend", "memory", "--refill-mode", "disabled", "allocate")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no available resources")
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		_, err := execute(t, "--backend", "floppy", "list")
		require.Error(t, err)
	})

	t.Run("rejects invalid count", func(t *testing.T) {
		_, err := execute(t, "--backend", "memory", "allocate", "0")
		require.Error(t, err)
	})

	t.Run("refiller needs postgres", func(t *testing.T) {
		_, err := execute(t, "--backend", "memory", "refiller")
		require.Error(t, err)
	})
}

func TestPollInterval(t *testing.T) {
	assert.Equal(t, time.Minute, pollInterval(time.Minute))
	assert.Negative(t, pollInterval(0), "zero disables polling")
	assert.Negative(t, pollInterval(-time.Second))
}
