package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/catalpa-lab/secondbrain/pkg/domain/interfaces"
	"github.com/catalpa-lab/secondbrain/pkg/service/llm"
	"github.com/catalpa-lab/secondbrain/pkg/utils/logging"
)

// LLM holds CLI flags for the chat model provider.
type LLM struct {
	provider        string
	ollamaURL       string
	ollamaModel     string
	anthropicAPIKey string
	anthropicModel  string
	timeout         time.Duration
}

func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "Chat model provider (ollama or anthropic)",
			Value:       "ollama",
			Sources:     cli.EnvVars("SECONDBRAIN_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "ollama-url",
			Usage:       "Ollama base URL",
			Value:       "http://localhost:11434",
			Sources:     cli.EnvVars("SECONDBRAIN_OLLAMA_URL"),
			Destination: &x.ollamaURL,
		},
		&cli.StringFlag{
			Name:        "ollama-model",
			Usage:       "Ollama model name",
			Value:       "llama3.2",
			Sources:     cli.EnvVars("SECONDBRAIN_OLLAMA_MODEL"),
			Destination: &x.ollamaModel,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("SECONDBRAIN_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"),
			Destination: &x.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "anthropic-model",
			Usage:       "Anthropic model name",
			Value:       "claude-sonnet-4-5",
			Sources:     cli.EnvVars("SECONDBRAIN_ANTHROPIC_MODEL"),
			Destination: &x.anthropicModel,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Request timeout for chat model calls",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("SECONDBRAIN_LLM_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

// Configure builds the chat model client for the selected provider.
func (x *LLM) Configure() (interfaces.LLMClient, error) {
	switch x.provider {
	case "ollama":
		client, err := llm.NewOllama(x.ollamaURL, x.ollamaModel, x.timeout)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure ollama client")
		}
		logging.Default().Info("Using Ollama", "url", x.ollamaURL, "model", x.ollamaModel)
		return client, nil

	case "anthropic":
		client, err := llm.NewAnthropic(x.anthropicAPIKey, x.anthropicModel, x.timeout)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure anthropic client")
		}
		logging.Default().Info("Using Anthropic", "model", x.anthropicModel)
		return client, nil

	default:
		return nil, goerr.New("invalid LLM provider", goerr.V("provider", x.provider))
	}
}
