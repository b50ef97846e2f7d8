package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driven"
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
	"github.com/custodia-labs/refrag/internal/logger"
)

// Ensure RefragService implements the interface.
var _ driving.RefragService = (*RefragService)(nil)

// Generation limits for answers.
const (
	defaultAnswerTokens = 512
)

// RefragService runs retrieval, selection and optional answer generation.
type RefragService struct {
	store            driven.PassageStore
	source           driven.CandidateSource
	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
	selector         driving.SelectionService
	settings         driving.SettingsService
	prompts          driven.PromptStore
}

// NewRefragService creates the pipeline service.
// The embeddingService and llmService parameters are optional (can be nil).
// The store doubles as the candidate source unless SetCandidateSource is called.
func NewRefragService(
	store driven.PassageStore,
	embeddingService driven.EmbeddingService,
	llmService driven.LLMService,
	selector driving.SelectionService,
) *RefragService {
	s := &RefragService{
		store:            store,
		embeddingService: embeddingService,
		llmService:       llmService,
		selector:         selector,
	}
	if store != nil {
		s.source = store
	}
	return s
}

// SetCandidateSource replaces the store as the source of candidates.
func (s *RefragService) SetCandidateSource(source driven.CandidateSource) {
	s.source = source
}

// SetSettings supplies configured defaults for K, budget and selection.
func (s *RefragService) SetSettings(settings driving.SettingsService) {
	s.settings = settings
}

// SetPromptStore supplies a user-editable answer template.
func (s *RefragService) SetPromptStore(prompts driven.PromptStore) {
	s.prompts = prompts
}

// GenerationAvailable reports whether an LLM is configured.
func (s *RefragService) GenerationAvailable() bool {
	return s.llmService != nil
}

// Retrieve embeds the query, retrieves candidates and selects among them.
func (s *RefragService) Retrieve(
	ctx context.Context, query string, opts domain.RefragOptions,
) (*domain.RefragContext, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.source == nil {
		return nil, domain.ErrSourceUnavailable
	}

	opts = s.resolveOptions(opts)
	budget := *opts.Budget
	logger.Debug("K: %d, budget: %d, strategy: %s", opts.K, budget, opts.Config.Strategy)

	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := domain.Vector(embedding)

	candidates, err := s.source.Retrieve(ctx, queryVec, opts.K)
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debug("Retrieved %d candidates", len(candidates))

	done := logger.Timed("Fragment Selection")
	result, err := s.selector.Select(ctx, queryVec, candidates, budget, opts.Config)
	done()
	if err != nil {
		return nil, err
	}

	return &domain.RefragContext{
		Query:       query,
		QueryVector: queryVec,
		Candidates:  domain.AttachSelection(candidates, result),
		Selection:   result,
	}, nil
}

// Forward runs Retrieve and, when requested, generates an answer. A failed
// or unavailable LLM leaves the answer empty and records the reason in
// GenerationError rather than failing the call.
func (s *RefragService) Forward(
	ctx context.Context, query string, opts domain.RefragOptions,
) (*domain.RefragContext, error) {
	rc, err := s.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if !opts.Generate {
		return rc, nil
	}

	logger.Section("Generation")
	if s.llmService == nil {
		logger.Warn("No LLM configured, skipping generation")
		rc.GenerationError = domain.ErrLLMUnavailable.Error()
		return rc, nil
	}

	prompt := domain.RenderPrompt(s.answerTemplate(), rc.Query, rc.Candidates)
	logger.Debug("Prompt: %d chars, model: %s", len(prompt), s.llmService.ModelName())

	answer, err := s.llmService.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   defaultAnswerTokens,
		Temperature: 0,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.Warn("Generation failed: %v", err)
		rc.GenerationError = err.Error()
		return rc, nil
	}

	rc.Answer = strings.TrimSpace(answer)
	return rc, nil
}

// AddPassages validates and stores passages. Passages without an ID get a
// UUID and passages without a vector are embedded in one batch.
func (s *RefragService) AddPassages(ctx context.Context, passages []domain.Passage) ([]string, error) {
	if s.store == nil {
		return nil, domain.ErrSourceUnavailable
	}
	if len(passages) == 0 {
		return []string{}, nil
	}

	logger.Section("Add Passages")

	prepared := make([]domain.Passage, len(passages))
	copy(prepared, passages)

	var toEmbed []int
	for i := range prepared {
		if prepared[i].ID == "" {
			prepared[i].ID = uuid.NewString()
		}
		if len(prepared[i].Vector) == 0 {
			toEmbed = append(toEmbed, i)
		}
	}

	if len(toEmbed) > 0 {
		if s.embeddingService == nil {
			return nil, fmt.Errorf("%d passages need embedding: %w", len(toEmbed), domain.ErrEmbeddingUnavailable)
		}
		texts := make([]string, len(toEmbed))
		for j, i := range toEmbed {
			texts[j] = prepared[i].Text
		}
		logger.Debug("Embedding %d passages with %s", len(texts), s.embeddingService.ModelName())
		vectors, err := s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed passages: %w", err)
		}
		if len(vectors) != len(toEmbed) {
			return nil, fmt.Errorf("embedding returned %d vectors for %d passages", len(vectors), len(toEmbed))
		}
		for j, i := range toEmbed {
			prepared[i].Vector = vectors[j]
		}
	}

	dim, err := s.store.Dimensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store dimensions: %w", err)
	}
	if dim == 0 {
		dim = len(prepared[0].Vector)
	}

	ids := make([]string, len(prepared))
	for i, p := range prepared {
		if err := p.Validate(dim); err != nil {
			return nil, err
		}
		ids[i] = p.ID
	}

	if err := s.store.Save(ctx, prepared); err != nil {
		return nil, fmt.Errorf("save passages: %w", err)
	}
	logger.Info("Stored %d passages (dim %d)", len(prepared), dim)
	return ids, nil
}

// answerTemplate returns the configured answer template or the built-in one.
func (s *RefragService) answerTemplate() string {
	if s.prompts == nil {
		return domain.DefaultAnswerPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		logger.Warn("Load answer prompt: %v", err)
		return domain.DefaultAnswerPrompt
	}
	return tmpl
}

// GetPassage retrieves a stored passage by ID.
func (s *RefragService) GetPassage(ctx context.Context, id string) (*domain.Passage, error) {
	if s.store == nil {
		return nil, domain.ErrSourceUnavailable
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty passage id: %w", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// DeletePassage removes a stored passage by ID.
func (s *RefragService) DeletePassage(ctx context.Context, id string) error {
	if s.store == nil {
		return domain.ErrSourceUnavailable
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("empty passage id: %w", domain.ErrInvalidInput)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Deleted passage %s", id)
	return nil
}

// Count returns the number of stored passages.
func (s *RefragService) Count(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, domain.ErrSourceUnavailable
	}
	return s.store.Count(ctx)
}

// resolveOptions fills unset options from settings, then from built-in defaults.
func (s *RefragService) resolveOptions(opts domain.RefragOptions) domain.RefragOptions {
	defaults := domain.DefaultAppSettings()
	cfg := defaults.Sensor.Config()
	if s.settings != nil {
		if settings, err := s.settings.Get(); err == nil {
			defaults = *settings
			cfg = s.settings.SelectionConfig()
		}
	}

	if opts.K <= 0 {
		opts.K = defaults.Retrieval.K
	}
	if opts.Budget == nil {
		opts.Budget = domain.BudgetOf(defaults.Retrieval.Budget)
	}
	if opts.Config.Strategy == "" {
		opts.Config = cfg
	}
	return opts
}
