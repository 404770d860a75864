// Package types provides shared data models for luminary.
package types

// Celebrity is one record of the curated dataset. Loaded once at startup and
// treated as immutable afterwards; instances are shared across sessions.
type Celebrity struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Category         string   `json:"category" yaml:"category"`
	Era              string   `json:"era" yaml:"era"`
	Nationality      string   `json:"nationality" yaml:"nationality"`
	Story            string   `json:"story" yaml:"story"`
	KeyAchievements  []string `json:"key_achievements" yaml:"key_achievements"`
	InterestingFacts []string `json:"interesting_facts" yaml:"interesting_facts"`
	Tags             []string `json:"tags" yaml:"tags"`
}

// CreativeRequest describes a one-shot story generation request.
// It is transient: built from user input, consumed once, never persisted.
type CreativeRequest struct {
	Celebrity         *Celebrity
	StoryType         string
	TargetLength      int
	Audience          []string
	CustomInstruction string
}

// Normalize fills in defaults and clamps the target length to the supported
// range. A zero-valued length means "use the default", not "minimum".
func (r *CreativeRequest) Normalize() {
	if r.StoryType == "" {
		r.StoryType = StoryTypes[0]
	}
	switch {
	case r.TargetLength == 0:
		r.TargetLength = DefaultStoryLength
	case r.TargetLength < MinStoryLength:
		r.TargetLength = MinStoryLength
	case r.TargetLength > MaxStoryLength:
		r.TargetLength = MaxStoryLength
	}
}

// StoryTypes are the supported creative story categories.
var StoryTypes = []string{"励志故事", "趣闻轶事", "专业成就", "情感故事", "历史时刻"}

// Audiences are the supported target audience labels.
var Audiences = []string{"儿童", "青少年", "成年人", "学生", "研究者"}

// Story length bounds and default, in characters (approximate, not a hard ceiling).
const (
	MinStoryLength     = 100
	MaxStoryLength     = 1000
	DefaultStoryLength = 300
)

// GlobalConfig is the user-wide configuration at ~/.config/luminary/config.yaml.
type GlobalConfig struct {
	Version   int                        `yaml:"version"`
	Dataset   string                     `yaml:"dataset"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
	Defaults  DefaultsConfig             `yaml:"defaults"`
	Chat      ChatConfig                 `yaml:"chat"`
}

// ProviderConfig holds API configuration for a completion provider.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url,omitempty"`
}

// DefaultsConfig specifies default settings.
type DefaultsConfig struct {
	Provider string `yaml:"provider"`
}

// ChatConfig holds conversation tuning parameters.
type ChatConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// DefaultGlobalConfig returns a new GlobalConfig with sensible defaults.
// The deepseek provider matches the dataset's upstream service; any
// OpenAI-compatible endpoint works through base_url.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Version: 1,
		Dataset: "data/celebrities.json",
		Providers: map[string]*ProviderConfig{
			"deepseek": {
				APIKey:       "${DEEPSEEK_API_KEY}",
				DefaultModel: "deepseek-chat",
				BaseURL:      "https://api.deepseek.com",
			},
		},
		Defaults: DefaultsConfig{
			Provider: "deepseek",
		},
		Chat: ChatConfig{
			Temperature: 0.7,
			MaxTokens:   500,
		},
	}
}
