// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/newthinker/gridlens/internal/config"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/llm"
	"github.com/newthinker/gridlens/internal/llm/claude"
	"github.com/newthinker/gridlens/internal/llm/ollama"
	"github.com/newthinker/gridlens/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty provider
// returns core.ErrLLMDisabled.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, core.ErrLLMDisabled
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
