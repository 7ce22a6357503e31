package ai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultTitle        = "ChatGPT 클론 서비스"
	defaultGreeting     = "안녕하세요."
	defaultSystemPrompt = "질문에 짧고 간결하게 답변해 주세요."
	defaultSessionID    = "abc123"
	defaultModelName    = "openai"
)

// ModelConfig defines the configuration for a single LLM.
type ModelConfig struct {
	Name        string  `json:"name" yaml:"name"`                             // e.g., "openai", "gemini"
	Provider    string  `json:"provider" yaml:"provider"`                     // "openai", "google", "anthropic", "ollama"
	APIKey      string  `json:"api_key" yaml:"api_key"`                       // "env:NAME", "secret:NAME" or a literal key
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"` // Optional: for custom endpoints
	ModelName   string  `json:"model_name" yaml:"model_name"`                 // The specific model ID (e.g., "gpt-4o-mini")
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`                 // Max output tokens, 0 = provider default
	Temperature float64 `json:"temperature" yaml:"temperature"`               // 0 = provider default
}

// Config holds the global AI and chat configuration.
type Config struct {
	DefaultModel string        `json:"default_model" yaml:"default_model"`
	Models       []ModelConfig `json:"models" yaml:"models"`

	Title            string `json:"title" yaml:"title"`
	Greeting         string `json:"greeting" yaml:"greeting"`           // display-only first message
	SystemPrompt     string `json:"system_prompt" yaml:"system_prompt"` // first prompt message
	DefaultSessionID string `json:"default_session_id" yaml:"default_session_id"`
	MaxHistoryTokens int    `json:"max_history_tokens" yaml:"max_history_tokens"` // 0 disables the window
}

// DefaultConfig returns the stock chat setup: one OpenAI model whose key comes
// from the OPENAI_API_KEY secret.
func DefaultConfig() Config {
	return Config{
		DefaultModel: defaultModelName,
		Models: []ModelConfig{
			{
				Name:     defaultModelName,
				Provider: "openai",
				APIKey:   "secret:OPENAI_API_KEY",
			},
		},
		Title:            defaultTitle,
		Greeting:         defaultGreeting,
		SystemPrompt:     defaultSystemPrompt,
		DefaultSessionID: defaultSessionID,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source == nil {
		return
	}
	if source.DefaultModel != "" {
		c.DefaultModel = source.DefaultModel
	}
	if len(source.Models) > 0 {
		c.Models = source.Models
	}
	if source.Title != "" {
		c.Title = source.Title
	}
	if source.Greeting != "" {
		c.Greeting = source.Greeting
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
	if source.DefaultSessionID != "" {
		c.DefaultSessionID = source.DefaultSessionID
	}
	if source.MaxHistoryTokens > 0 {
		c.MaxHistoryTokens = source.MaxHistoryTokens
	}
}

// Model 按名称查找模型配置。
func (c *Config) Model(name string) (*ModelConfig, bool) {
	for i := range c.Models {
		if c.Models[i].Name == name {
			return &c.Models[i], true
		}
	}
	return nil, false
}

// LoadConfig reads a YAML file and merges it over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Merge(&loaded)
	return &cfg, nil
}
