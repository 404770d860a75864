package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadnessbroccoli/luminary/pkg/types"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "luminary")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

// ============================================================================
// Config Loading Tests
// ============================================================================

// TestLoadGlobalConfigDefaults tests defaulting when no file exists.
func TestLoadGlobalConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DEEPSEEK_API_KEY", "")

	cm, err := NewConfigManager()
	require.NoError(t, err)

	config, err := cm.LoadGlobalConfig()
	require.NoError(t, err)

	assert.Equal(t, "deepseek", config.Defaults.Provider)
	require.Contains(t, config.Providers, "deepseek")
	assert.Equal(t, "deepseek-chat", config.Providers["deepseek"].DefaultModel)
	assert.InDelta(t, 0.7, config.Chat.Temperature, 1e-9)
	assert.Equal(t, 500, config.Chat.MaxTokens)
}

// TestLoadGlobalConfigExpandsEnvKeys tests ${VAR} expansion in api_key.
func TestLoadGlobalConfigExpandsEnvKeys(t *testing.T) {
	writeConfig(t, `
version: 1
dataset: data/celebrities.json
providers:
  deepseek:
    api_key: ${TEST_LUMINARY_KEY}
    default_model: deepseek-chat
defaults:
  provider: deepseek
chat:
  temperature: 0.7
  max_tokens: 500
`)
	t.Setenv("TEST_LUMINARY_KEY", "sk-from-env")

	cm, err := NewConfigManager()
	require.NoError(t, err)

	config, err := cm.LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", config.Providers["deepseek"].APIKey)
}

// TestLoadGlobalConfigEnvOverrides tests that process environment wins over
// the file.
func TestLoadGlobalConfigEnvOverrides(t *testing.T) {
	writeConfig(t, `
version: 1
providers:
  deepseek:
    api_key: sk-from-file
    default_model: deepseek-chat
defaults:
  provider: deepseek
`)
	t.Setenv("DEEPSEEK_API_KEY", "sk-from-process")
	t.Setenv("LUMINARY_MODEL", "deepseek-reasoner")

	cm, err := NewConfigManager()
	require.NoError(t, err)

	config, err := cm.LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-process", config.Providers["deepseek"].APIKey)
	assert.Equal(t, "deepseek-reasoner", config.Providers["deepseek"].DefaultModel)
}

// TestLoadGlobalConfigInvalidYAML tests the typed parse error.
func TestLoadGlobalConfigInvalidYAML(t *testing.T) {
	writeConfig(t, "providers: [not a map")

	cm, err := NewConfigManager()
	require.NoError(t, err)

	_, err = cm.LoadGlobalConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestSaveGlobalConfigRoundTrip tests save then reload.
func TestSaveGlobalConfigRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DEEPSEEK_API_KEY", "")

	cm, err := NewConfigManager()
	require.NoError(t, err)

	config := types.DefaultGlobalConfig()
	config.Providers["deepseek"].APIKey = "sk-saved"
	config.Chat.MaxTokens = 800
	require.NoError(t, cm.SaveGlobalConfig(config))

	// Fresh manager reads what was written.
	reloaded, err := NewConfigManager()
	require.NoError(t, err)
	got, err := reloaded.LoadGlobalConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-saved", got.Providers["deepseek"].APIKey)
	assert.Equal(t, 800, got.Chat.MaxTokens)
}

// ============================================================================
// MaskAPIKey Tests
// ============================================================================

// TestMaskAPIKey tests that no key middle ever leaks.
func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			name: "empty key",
			key:  "",
			want: "(未设置)",
		},
		{
			name: "short key fully masked",
			key:  "sk-12345",
			want: "********",
		},
		{
			name: "long key keeps edges",
			key:  "sk-abcdef1234567890",
			want: "sk-a...7890",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskAPIKey(tt.key))
		})
	}
}
