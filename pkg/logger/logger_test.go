package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRotatingWriter_Rotates(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	w, err := newDailyRotatingWriter(dir, FilenameFormat, func() time.Time { return now })
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("before midnight\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gateway-2024-03-09.log"), w.Path())

	now = now.Add(2 * time.Minute)
	_, err = w.Write([]byte("after midnight\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gateway-2024-03-10.log"), w.Path())

	first, err := os.ReadFile(filepath.Join(dir, "gateway-2024-03-09.log"))
	require.NoError(t, err)
	assert.Equal(t, "before midnight\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "gateway-2024-03-10.log"))
	require.NoError(t, err)
	assert.Equal(t, "after midnight\n", string(second))
}

func TestSetupLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := SetupLogging(dir)
	require.NoError(t, err)
	t.Cleanup(func() { CloseLogger() })

	logger.Printf("hello")
	require.NoError(t, CloseLogger())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
