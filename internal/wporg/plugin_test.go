// ABOUTME: Tests for converting decoded API responses into PluginInfo.
// ABOUTME: Focuses on the loose typing PHP responses come with.

package wporg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginFromValue_LooseNumbers(t *testing.T) {
	info, err := pluginFromValue(map[string]any{
		"name":        "Numbers",
		"rating":      "88.5",
		"num_ratings": "12",
		"downloaded":  float64(1500),
		"version":     int64(2),
	})
	require.NoError(t, err)

	assert.Equal(t, 88.5, info.Rating)
	assert.Equal(t, int64(12), info.NumRatings)
	assert.Equal(t, int64(1500), info.Downloaded)
	assert.Equal(t, "2", info.Version)
}

func TestPluginFromValue_MissingFieldsAreZero(t *testing.T) {
	info, err := pluginFromValue(map[string]any{"name": "Bare", "slug": "bare"})
	require.NoError(t, err)

	assert.Equal(t, &PluginInfo{Name: "Bare", Slug: "bare"}, info)
}

func TestPluginFromValue_Rejects(t *testing.T) {
	_, err := pluginFromValue(false)
	assert.Error(t, err)

	_, err = pluginFromValue(nil)
	assert.Error(t, err)

	_, err = pluginFromValue(map[string]any{"error": "Plugin not found."})
	assert.True(t, errors.Is(err, errAPI))
}
