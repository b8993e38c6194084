package config

import "time"

func NewBackendForTest(backend, sqlitePath, chromemPath, databaseURL string) *Backend {
	return &Backend{
		backend:     backend,
		sqlitePath:  sqlitePath,
		chromemPath: chromemPath,
		databaseURL: databaseURL,
		poolSize:    2,
	}
}

func NewLLMForTest(provider, ollamaURL, ollamaModel, apiKey, anthropicModel string) *LLM {
	return &LLM{
		provider:        provider,
		ollamaURL:       ollamaURL,
		ollamaModel:     ollamaModel,
		anthropicAPIKey: apiKey,
		anthropicModel:  anthropicModel,
		timeout:         time.Second,
	}
}

func NewAppForTest(workspacePath, profilePath string) *App {
	return &App{
		workspacePath: workspacePath,
		profilePath:   profilePath,
	}
}
