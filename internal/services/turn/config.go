// File: internal/services/turn/config.go
package turn

import (
	"fmt"
	"time"
)

// defaultSystemPrompt frames the assistant and its tool discipline.
const defaultSystemPrompt = `You are Calyra, a friendly personal assistant. ` +
	`Keep your responses concise and helpful. You can look up information ` +
	`with the read-only tools at any time; tools that change the user's ` +
	`data will ask the user for approval before they run.`

type Config struct {
	// Model Configuration
	DefaultModel string
	TitleModel   string

	// Turn budget: the whole turn, assembly through terminal frame.
	TurnTimeout time.Duration

	// MaxSteps bounds the generation loop (each tool round is a step).
	MaxSteps int

	SystemPrompt string
}

func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model is required")
	}
	if c.TitleModel == "" {
		return fmt.Errorf("title_model is required")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("turn_timeout must be positive")
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be at least 1")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		DefaultModel: "gpt-4o-mini",
		TitleModel:   "gpt-4o-mini",
		TurnTimeout:  90 * time.Second,
		MaxSteps:     5,
		SystemPrompt: defaultSystemPrompt,
	}
}
