package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	log, closer, err := New(Options{Level: "debug", Stderr: &console, Dir: dir, Now: func() time.Time { return now }})
	require.NoError(t, err)

	log.WithField("platform", "github").Debug("probe settled")
	require.NoError(t, closer.Close())

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.Contains(t, console.String(), "probe settled")

	raw, err := os.ReadFile(filepath.Join(dir, "516_hackers_20240309.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "platform=github")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	log, _, err := New(Options{Level: "loud", Stderr: &console})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, console.String())
}
