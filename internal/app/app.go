package app

import (
	"context"
	"fmt"

	"github.com/sadnessbroccoli/luminary/internal/celebrity"
	"github.com/sadnessbroccoli/luminary/internal/llm"
	"github.com/sadnessbroccoli/luminary/internal/llm/adapters"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

// App represents the main application instance: configuration plus the
// loaded celebrity dataset.
type App struct {
	Config *ConfigManager
	Store  *celebrity.Store
}

// New creates a new application instance and loads the dataset.
func New() (*App, error) {
	configManager, err := NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	globalConfig, err := configManager.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}

	store, err := celebrity.Load(globalConfig.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to load celebrity dataset: %w", err)
	}

	return &App{
		Config: configManager,
		Store:  store,
	}, nil
}

// NewClient constructs the completion client for the named provider, or the
// configured default when name is empty.
func (a *App) NewClient(ctx context.Context, name string) (llm.Client, string, error) {
	config, err := a.Config.LoadGlobalConfig()
	if err != nil {
		return nil, "", err
	}

	if name == "" {
		name = config.Defaults.Provider
	}

	provider, ok := config.Providers[name]
	if !ok {
		return nil, "", fmt.Errorf("provider %q not configured", name)
	}

	switch name {
	case "deepseek":
		opts := []adapters.DeepSeekOption{}
		if provider.BaseURL != "" {
			opts = append(opts, adapters.WithBaseURL(provider.BaseURL))
		}
		client := adapters.NewDeepSeekAdapter(provider.APIKey, provider.DefaultModel, opts...)
		return client, provider.DefaultModel, nil
	case "gemini":
		client, err := adapters.NewGeminiAdapter(ctx, provider.APIKey, provider.DefaultModel)
		if err != nil {
			return nil, "", err
		}
		return client, provider.DefaultModel, nil
	default:
		return nil, "", fmt.Errorf("unsupported provider %q", name)
	}
}

// ChatSettings returns the tuned conversation parameters.
func (a *App) ChatSettings() (types.ChatConfig, error) {
	config, err := a.Config.LoadGlobalConfig()
	if err != nil {
		return types.ChatConfig{}, err
	}
	return config.Chat, nil
}

// Close cleans up application resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
