package mcp

import (
	"context"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// mockSelectionService records the last call.
type mockSelectionService struct {
	result     *domain.SelectionResult
	err        error
	lastQuery  domain.Vector
	lastCands  []domain.Candidate
	lastBudget int
	lastConfig domain.SelectionConfig
}

func (m *mockSelectionService) Select(
	_ context.Context,
	query domain.Vector,
	candidates []domain.Candidate,
	budget int,
	cfg domain.SelectionConfig,
) (*domain.SelectionResult, error) {
	m.lastQuery, m.lastCands, m.lastBudget, m.lastConfig = query, candidates, budget, cfg
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SelectionResult{Strategy: cfg.Strategy, Requested: cfg.Strategy}, nil
}

func (m *mockSelectionService) SelectBatch(
	ctx context.Context,
	reqs []domain.SelectionRequest,
) ([]*domain.SelectionResult, error) {
	out := make([]*domain.SelectionResult, len(reqs))
	for i, r := range reqs {
		res, err := m.Select(ctx, r.Query, r.Candidates, r.Budget, r.Config)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// mockRefragService serves a fixed context and passage set.
type mockRefragService struct {
	context  *domain.RefragContext
	passages map[string]domain.Passage
	err      error
	lastOpts domain.RefragOptions
}

func (m *mockRefragService) Retrieve(
	ctx context.Context, query string, opts domain.RefragOptions,
) (*domain.RefragContext, error) {
	return m.Forward(ctx, query, opts)
}

func (m *mockRefragService) Forward(
	_ context.Context, _ string, opts domain.RefragOptions,
) (*domain.RefragContext, error) {
	m.lastOpts = opts
	return m.context, m.err
}

func (m *mockRefragService) AddPassages(_ context.Context, _ []domain.Passage) ([]string, error) {
	return nil, m.err
}

func (m *mockRefragService) GetPassage(_ context.Context, id string) (*domain.Passage, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.passages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockRefragService) DeletePassage(_ context.Context, _ string) error {
	return m.err
}

func (m *mockRefragService) Count(_ context.Context) (int, error) {
	return len(m.passages), m.err
}

func (m *mockRefragService) GenerationAvailable() bool {
	return false
}

// mockSettingsService returns fixed settings.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error {
	return m.err
}

func (m *mockSettingsService) SetSensor(_ domain.SensorSettings) error {
	return m.err
}

func (m *mockSettingsService) SetRetrieval(_ domain.RetrievalSettings) error {
	return m.err
}

func (m *mockSettingsService) SetEmbeddingProvider(_ domain.AIProvider, _, _ string) error {
	return m.err
}

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error {
	return m.err
}

func (m *mockSettingsService) SelectionConfig() domain.SelectionConfig {
	return m.settings.Sensor.Config()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return nil
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return nil
}
