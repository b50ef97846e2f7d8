// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	ollamaembed "github.com/custodia-labs/refrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/refrag/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/refrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/refrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/refrag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driven"
	"github.com/custodia-labs/refrag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// OpenRouter environment variables.
const (
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
	EnvOpenRouterModel  = "OPENROUTER_MODEL"
)

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues that left a service nil.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds the embedding and LLM services from settings. A service that
// cannot be created or does not answer a ping is left nil and reported in
// Warnings, so retrieval still works without an LLM and vector-only
// selection still works without an embedder.
func Init(settings *domain.AppSettings, validate bool) *InitResult {
	result := &InitResult{}
	if settings == nil {
		return result
	}

	llmSettings := settings.LLM
	if ApplyOpenRouterEnv(&llmSettings, os.Getenv) {
		logger.Info("Using OpenRouter model %s from environment", llmSettings.Model)
	}

	create := CreateEmbeddingService
	createLLM := CreateLLMService
	if validate {
		create = CreateAndValidateEmbeddingService
		createLLM = CreateAndValidateLLMService
	}

	embedding, err := create(&settings.Embedding)
	if err != nil {
		logger.Warn("Embedding disabled: %v", err)
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.EmbeddingService = embedding
	}

	llm, err := createLLM(&llmSettings)
	if err != nil {
		logger.Warn("Generation disabled: %v", err)
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.LLMService = llm
	}

	return result
}

// ApplyOpenRouterEnv points an unconfigured LLM at OpenRouter when
// OPENROUTER_API_KEY is set. Explicit settings win. Reports whether the
// settings were changed.
func ApplyOpenRouterEnv(settings *domain.LLMSettings, getenv func(string) string) bool {
	if settings == nil || settings.IsConfigured() {
		return false
	}
	key := getenv(EnvOpenRouterAPIKey)
	if key == "" {
		return false
	}

	model := getenv(EnvOpenRouterModel)
	if model == "" {
		model = openaillm.OpenRouterModel
	}
	*settings = domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    model,
		BaseURL:  openaillm.OpenRouterBaseURL,
		APIKey:   key,
	}
	return true
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'refrag settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'refrag settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'refrag settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'refrag settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig creates a service from settings and pings it.
// Unconfigured settings are valid.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates a service from settings and pings it.
// Unconfigured settings are valid.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			Normalize: settings.Normalize,
			Limiter:   ratelimit.New("ollama"),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:    settings.APIKey,
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			Normalize: settings.Normalize,
			Limiter:   ratelimit.New("openai"),
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New("ollama"),
		}), nil

	case domain.AIProviderOpenAI:
		limiter := "openai"
		if openaillm.IsOpenRouter(settings.BaseURL) {
			limiter = "openrouter"
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New(limiter),
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
