package agent

// Provider defaults.
const (
	DefaultModel     = "claude-sonnet-4-6"
	DefaultBaseURL   = "https://api.anthropic.com/v1/messages"
	DefaultMaxTokens = 16000
	DefaultThinking  = "adaptive"
	DefaultAPIKeyEnv = "ANTHROPIC_API_KEY"

	apiVersion = "2023-06-01"
)

// Config holds model provider parameters.
type Config struct {
	APIKey    string `json:"api_key,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty"` // Environment variable consulted when APIKey is empty.
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Thinking  string `json:"thinking,omitempty"` // Thinking mode; "disabled" omits it from requests.
	System    string `json:"system_prompt,omitempty"`
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		APIKeyEnv: DefaultAPIKeyEnv,
		Model:     DefaultModel,
		BaseURL:   DefaultBaseURL,
		MaxTokens: DefaultMaxTokens,
		Thinking:  DefaultThinking,
		System:    SystemPrompt,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.APIKeyEnv != "" {
		c.APIKeyEnv = source.APIKeyEnv
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.Thinking != "" {
		c.Thinking = source.Thinking
	}
	if source.System != "" {
		c.System = source.System
	}
}
