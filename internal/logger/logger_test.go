package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.log")

	l, err := New("production", "info", path)
	require.NoError(t, err)
	l.Info("catalog persisted", zap.Int("count", 3))
	l.Debug("below threshold")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"catalog persisted"`)
	assert.Contains(t, string(data), `"count":3`)
	assert.NotContains(t, string(data), "below threshold")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("development", "loud", "")
	assert.Error(t, err)
}
