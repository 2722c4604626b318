package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_RequiresArg(t *testing.T) {
	out, err := execute(t, "watch")
	assert.Error(t, err)
	assert.Contains(t, out, "accepts 1 arg")
}

func TestWatchCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(Services{})
	_, err := execute(t, "watch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestWatchCmd_RejectsMissingDirectory(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
