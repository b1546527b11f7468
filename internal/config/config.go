// Package config resolves the settings of a chat run: defaults, an optional
// JSON file, environment variables and, for missing keys, an interactive
// prompt. The result is passed explicitly; nothing is written back to the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/vasilisp/chatgraph/console"
	"github.com/vasilisp/chatgraph/openai"
)

// Config holds the settings of one run. API keys are never read from or
// written to the config file.
type Config struct {
	Provider         openai.Provider `json:"provider" jsonschema:"enum=openai,enum=groq,default=groq,description=Chat completions provider"`
	Model            string          `json:"model,omitempty" jsonschema:"description=Model name; the provider default when empty"`
	BaseURL          string          `json:"baseURL,omitempty" jsonschema:"description=Override of the provider endpoint"`
	SystemPrompt     string          `json:"systemPrompt,omitempty" jsonschema:"description=Sent before the transcript on every turn"`
	FallbackQuestion *string         `json:"fallbackQuestion,omitempty" jsonschema:"description=Asked once when input ends; empty disables"`

	OpenAIAPIKey string `json:"-"`
	GroqAPIKey   string `json:"-"`
}

func Default() Config {
	fallback := console.DefaultFallback

	return Config{
		Provider:         openai.Groq,
		FallbackQuestion: &fallback,
	}
}

// LoadFile overlays the non-empty fields of a JSON file onto c.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := json.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.Provider != "" {
		c.Provider = file.Provider
	}
	if file.Model != "" {
		c.Model = file.Model
	}
	if file.BaseURL != "" {
		c.BaseURL = file.BaseURL
	}
	if file.SystemPrompt != "" {
		c.SystemPrompt = file.SystemPrompt
	}
	if file.FallbackQuestion != nil {
		c.FallbackQuestion = file.FallbackQuestion
	}

	return nil
}

func (c Config) Fallback() string {
	if c.FallbackQuestion == nil {
		return ""
	}
	return *c.FallbackQuestion
}

// APIKey returns the key for the selected provider.
func (c Config) APIKey() string {
	if c.Provider == openai.OpenAI {
		return c.OpenAIAPIKey
	}
	return c.GroqAPIKey
}

// Validate checks the provider and that its key is present.
func (c Config) Validate() error {
	if _, err := openai.ParseProvider(string(c.Provider)); err != nil {
		return err
	}
	if c.APIKey() == "" {
		return fmt.Errorf("%w: %s not set", openai.ErrMissingAPIKey, c.Provider.KeyEnv())
	}
	return nil
}

// ModelConfig returns the settings of the turn processor.
func (c Config) ModelConfig() openai.Config {
	return openai.Config{
		Provider:     c.Provider,
		APIKey:       c.APIKey(),
		Model:        c.Model,
		BaseURL:      c.BaseURL,
		SystemPrompt: c.SystemPrompt,
	}
}

// Schema returns the JSON Schema of the config file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})
	schema.Title = "chatgraph configuration"

	return json.MarshalIndent(schema, "", "  ")
}
