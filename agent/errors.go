package agent

import "errors"

var (
	// ErrMissingAPIKey is reported when neither the config nor the environment
	// provides a provider API key.
	ErrMissingAPIKey = errors.New("API key not set; set ANTHROPIC_API_KEY or agent.api_key")

	ErrAPIStatus = errors.New("API error")
)
