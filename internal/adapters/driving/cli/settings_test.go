package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsCmd_Show(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Near (Jaccard):    0.850")
	assert.Contains(t, out, "Semantic (cosine): 0.920")
	assert.Contains(t, out, "16 bands x 8 rows")
	assert.Contains(t, out, "Unknown:  flag (fixed)")
}

func TestSettingsCmd_SetThreshold(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "settings", "set", "--near-threshold", "0.9")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings updated")

	out, err = execute(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Near (Jaccard):    0.900")
}

func TestSettingsCmd_SetPermutationsRederivesBanding(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "settings", "set", "--permutations", "64")
	require.NoError(t, err)

	out, err := execute(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Permutations: 64")
	assert.NotContains(t, out, "16 bands x 8 rows")
}

func TestSettingsCmd_SetRejectsInvalid(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "settings", "set", "--bands", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestSettingsCmd_SetRejectsUnknownAction(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "settings", "set", "--on-near", "explode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestSettingsCmd_StoreNotConfigured(t *testing.T) {
	SetServices(Services{})

	_, err := execute(t, "settings", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
