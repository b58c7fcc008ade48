package summarizer

import (
	"fmt"

	"github.com/memomeet/memomeet/ports"
)

// Config selects and configures the summarization provider.
type Config struct {
	Mode string // "openai", "dummy", "none"
	OpenAIConfig
}

// New creates a summarizer based on config.
func New(cfg Config) (ports.Summarizer, error) {
	switch cfg.Mode {
	case "openai":
		return NewOpenAI(cfg.OpenAIConfig)
	case "dummy":
		return Dummy{}, nil
	case "none", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Mode)
	}
}
