// Package app provides application lifecycle management.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sadnessbroccoli/luminary/internal/storage"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// envOverrides are environment settings that take precedence over the
// config file. A .env file in the working directory is honored first.
type envOverrides struct {
	DeepSeekAPIKey string `env:"DEEPSEEK_API_KEY"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	Model          string `env:"LUMINARY_MODEL"`
	Dataset        string `env:"LUMINARY_DATASET"`
}

// ConfigManager handles the global configuration file.
type ConfigManager struct {
	globalConfigPath string
	globalConfig     *types.GlobalConfig
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager() (*ConfigManager, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	return &ConfigManager{
		globalConfigPath: filepath.Join(configDir, "config.yaml"),
	}, nil
}

// getConfigDir returns the configuration directory path.
func getConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "luminary"), nil
}

// LoadGlobalConfig loads the global configuration, creating defaults when
// the file does not exist. ${ENV} references in API keys are expanded, then
// process environment overrides are applied on top.
func (cm *ConfigManager) LoadGlobalConfig() (*types.GlobalConfig, error) {
	if cm.globalConfig != nil {
		return cm.globalConfig, nil
	}

	// Not an error when missing; env vars can still carry the keys.
	_ = godotenv.Load()

	config, err := cm.readConfigFile()
	if err != nil {
		return nil, err
	}

	// Expand environment variables in API keys
	for name, provider := range config.Providers {
		if strings.HasPrefix(provider.APIKey, "${") && strings.HasSuffix(provider.APIKey, "}") {
			envVar := provider.APIKey[2 : len(provider.APIKey)-1]
			provider.APIKey = os.Getenv(envVar)
			config.Providers[name] = provider
		}
	}

	var env envOverrides
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	applyEnvOverrides(config, env)

	config.Dataset = expandPath(config.Dataset)

	cm.globalConfig = config
	return cm.globalConfig, nil
}

func (cm *ConfigManager) readConfigFile() (*types.GlobalConfig, error) {
	data, err := os.ReadFile(cm.globalConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return types.DefaultGlobalConfig(), nil
		}
		return nil, fmt.Errorf("failed to read global config: %w", err)
	}

	var config types.GlobalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

func applyEnvOverrides(config *types.GlobalConfig, env envOverrides) {
	if config.Providers == nil {
		config.Providers = make(map[string]*types.ProviderConfig)
	}
	if env.DeepSeekAPIKey != "" {
		ensureProvider(config, "deepseek", "deepseek-chat").APIKey = env.DeepSeekAPIKey
	}
	if env.GeminiAPIKey != "" {
		ensureProvider(config, "gemini", "gemini-2.0-flash").APIKey = env.GeminiAPIKey
	}
	if env.Model != "" {
		if p, ok := config.Providers[config.Defaults.Provider]; ok {
			p.DefaultModel = env.Model
		}
	}
	if env.Dataset != "" {
		config.Dataset = env.Dataset
	}
}

func ensureProvider(config *types.GlobalConfig, name, model string) *types.ProviderConfig {
	if p, ok := config.Providers[name]; ok {
		return p
	}
	p := &types.ProviderConfig{DefaultModel: model}
	config.Providers[name] = p
	return p
}

// SaveGlobalConfig saves the global configuration.
func (cm *ConfigManager) SaveGlobalConfig(config *types.GlobalConfig) error {
	dir := filepath.Dir(cm.globalConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := storage.AtomicWriteFile(cm.globalConfigPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cm.globalConfig = config
	return nil
}

// GetProviderConfig returns the configuration for a specific provider.
func (cm *ConfigManager) GetProviderConfig(providerName string) (*types.ProviderConfig, error) {
	config, err := cm.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	provider, ok := config.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", providerName)
	}

	return provider, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// MaskAPIKey hides the middle of a key for display. Short keys are fully
// masked.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(未设置)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
