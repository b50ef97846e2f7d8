package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// selectionParams are the tuning knobs shared by both tools. Unset fields
// fall back to the configured defaults.
type selectionParams struct {
	strategy          string
	lambda            *float64
	varianceThreshold *float64
}

// CandidateInput is one fragment offered to the selector.
type CandidateInput struct {
	ID     string    `json:"id,omitempty" jsonschema:"optional identifier echoed in the result"`
	Vector []float64 `json:"vector" jsonschema:"embedding with the same dimension as the query"`
	Text   string    `json:"text,omitempty" jsonschema:"optional fragment text"`
}

// SelectInput is the input schema for the select_fragments tool.
type SelectInput struct {
	Query             []float64        `json:"query" jsonschema:"query embedding"`
	Candidates        []CandidateInput `json:"candidates" jsonschema:"retrieved fragments to choose from"`
	Budget            int              `json:"budget" jsonschema:"maximum number of fragments to select"`
	Strategy          string           `json:"strategy,omitempty" jsonschema:"one of mmr, uncertainty, adaptive, ensemble"`
	Lambda            *float64         `json:"lambda,omitempty" jsonschema:"MMR relevance weight in [0,1]; 1 ignores redundancy"`
	VarianceThreshold *float64         `json:"variance_threshold,omitempty" jsonschema:"adaptive: pairwise similarity variance below which uncertainty is used"`
}

func (in SelectInput) params() selectionParams {
	return selectionParams{in.Strategy, in.Lambda, in.VarianceThreshold}
}

// SelectedOutput is one chosen fragment.
type SelectedOutput struct {
	Index int     `json:"index"`
	ID    string  `json:"id,omitempty"`
	Score float64 `json:"score"`
}

// SelectOutput is the output schema for the select_fragments tool.
type SelectOutput struct {
	Strategy  string           `json:"strategy"`
	Requested string           `json:"requested"`
	Selected  []SelectedOutput `json:"selected"`
	Scores    []float64        `json:"scores"`
	Diversity float64          `json:"diversity,omitempty" jsonschema:"similarity variance measured by the adaptive strategy"`
}

// QueryInput is the input schema for the refrag_query tool.
type QueryInput struct {
	Query             string   `json:"query" jsonschema:"natural language query"`
	K                 int      `json:"k,omitempty" jsonschema:"number of passages to retrieve (default from settings)"`
	Budget            *int     `json:"budget,omitempty" jsonschema:"number of passages to select (default from settings); 0 selects none"`
	Generate          bool     `json:"generate,omitempty" jsonschema:"also generate an answer with the configured LLM"`
	Strategy          string   `json:"strategy,omitempty" jsonschema:"one of mmr, uncertainty, adaptive, ensemble"`
	Lambda            *float64 `json:"lambda,omitempty" jsonschema:"MMR relevance weight in [0,1]; 1 ignores redundancy"`
	VarianceThreshold *float64 `json:"variance_threshold,omitempty" jsonschema:"adaptive: pairwise similarity variance below which uncertainty is used"`
}

func (in QueryInput) params() selectionParams {
	return selectionParams{in.Strategy, in.Lambda, in.VarianceThreshold}
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
	Selected  bool    `json:"selected"`
}

// QueryOutput is the output schema for the refrag_query tool.
type QueryOutput struct {
	Strategy        string          `json:"strategy"`
	Passages        []PassageOutput `json:"passages"`
	Answer          string          `json:"answer,omitempty"`
	GenerationError string          `json:"generation_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "select_fragments",
		Description: "Choose a diverse, relevant subset of candidate embeddings for a query embedding",
	}, s.handleSelect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refrag_query",
		Description: "Retrieve stored passages for a text query, mark the selected ones and optionally answer",
	}, s.handleQuery)
}

// handleSelect handles the select_fragments tool invocation.
func (s *Server) handleSelect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SelectInput,
) (*mcp.CallToolResult, SelectOutput, error) {
	cfg, err := s.resolveConfig(input.params())
	if err != nil {
		return nil, SelectOutput{}, err
	}

	candidates := make([]domain.Candidate, len(input.Candidates))
	for i, c := range input.Candidates {
		candidates[i] = domain.Candidate{ID: c.ID, Vector: toVector(c.Vector)}
		if c.Text != "" {
			candidates[i].Metadata = map[string]any{domain.MetadataKeyText: c.Text}
		}
	}

	result, err := s.ports.Selection.Select(ctx, toVector(input.Query), candidates, input.Budget, cfg)
	if err != nil {
		return nil, SelectOutput{}, err
	}

	output := SelectOutput{
		Strategy:  result.Strategy.String(),
		Requested: result.Requested.String(),
		Selected:  make([]SelectedOutput, len(result.Selected)),
		Scores:    result.Scores,
		Diversity: result.Diversity,
	}
	if output.Scores == nil {
		output.Scores = []float64{}
	}
	for i, sel := range result.Selected {
		output.Selected[i] = SelectedOutput{Index: sel.Index, ID: sel.ID, Score: sel.Score}
	}

	return nil, output, nil
}

// handleQuery handles the refrag_query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if s.ports.Refrag == nil {
		return nil, QueryOutput{}, ErrRetrievalUnavailable
	}

	opts := domain.RefragOptions{
		K:        input.K,
		Budget:   input.Budget,
		Generate: input.Generate,
	}
	if p := input.params(); !p.empty() {
		cfg, err := s.resolveConfig(p)
		if err != nil {
			return nil, QueryOutput{}, err
		}
		opts.Config = cfg
	}

	rc, err := s.ports.Refrag.Forward(ctx, input.Query, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Strategy:        rc.Selection.Strategy.String(),
		Passages:        make([]PassageOutput, len(rc.Candidates)),
		Answer:          rc.Answer,
		GenerationError: rc.GenerationError,
	}
	for i, c := range rc.Candidates {
		output.Passages[i] = PassageOutput{
			ID:       c.ID,
			Text:     c.Text(),
			Selected: c.Selected(),
		}
		if i < len(rc.Selection.Scores) {
			output.Passages[i].Relevance = rc.Selection.Scores[i]
		}
	}

	return nil, output, nil
}

// resolveConfig layers tool parameters over the configured defaults.
func (s *Server) resolveConfig(p selectionParams) (domain.SelectionConfig, error) {
	cfg := domain.DefaultSelectionConfig()
	if s.ports.Settings != nil {
		cfg = s.ports.Settings.SelectionConfig()
	}

	if p.strategy != "" {
		strategy, err := domain.ParseStrategy(p.strategy)
		if err != nil {
			return cfg, fmt.Errorf("strategy: %w", err)
		}
		cfg.Strategy = strategy
	}
	if p.lambda != nil {
		cfg.Lambda = *p.lambda
	}
	if p.varianceThreshold != nil {
		cfg.VarianceThreshold = *p.varianceThreshold
	}
	return cfg, nil
}

func (p selectionParams) empty() bool {
	return p.strategy == "" && p.lambda == nil && p.varianceThreshold == nil
}

func toVector(v []float64) domain.Vector {
	out := make(domain.Vector, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
