package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for refrag resources.
	uriScheme = "refrag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "strategies",
		Name:        "strategies",
		Description: "Selection strategies and what they optimise for",
		MIMEType:    "application/json",
	}, s.handleStrategiesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Configured selection and retrieval defaults",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "passages/{passageId}",
		Name:        "passage",
		Description: "Text of a stored passage",
		MIMEType:    "text/plain",
	}, s.handlePassageResource)
}

// handleStrategiesResource lists the configurable strategies.
func (s *Server) handleStrategiesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type strategyInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	strategies := domain.AllStrategies()
	infos := make([]strategyInfo, len(strategies))
	for i, st := range strategies {
		infos[i] = strategyInfo{Name: st.String(), Description: st.Description()}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleSettingsResource returns the sensor and retrieval defaults.
// Provider credentials are never exposed.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings := domain.DefaultAppSettings()
	if s.ports.Settings != nil {
		current, err := s.ports.Settings.Get()
		if err != nil {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
		settings = *current
	}

	type settingsInfo struct {
		Strategy          string  `json:"strategy"`
		Lambda            float64 `json:"lambda"`
		VarianceThreshold float64 `json:"variance_threshold"`
		K                 int     `json:"k"`
		Budget            int     `json:"budget"`
		EmbeddingProvider string  `json:"embedding_provider,omitempty"`
		EmbeddingModel    string  `json:"embedding_model,omitempty"`
		LLMProvider       string  `json:"llm_provider,omitempty"`
		LLMModel          string  `json:"llm_model,omitempty"`
	}

	return jsonResource(req.Params.URI, settingsInfo{
		Strategy:          settings.Sensor.Strategy.String(),
		Lambda:            settings.Sensor.Lambda,
		VarianceThreshold: settings.Sensor.VarianceThreshold,
		K:                 settings.Retrieval.K,
		Budget:            settings.Retrieval.Budget,
		EmbeddingProvider: settings.Embedding.Provider.String(),
		EmbeddingModel:    settings.Embedding.Model,
		LLMProvider:       settings.LLM.Provider.String(),
		LLMModel:          settings.LLM.Model,
	})
}

// handlePassageResource returns the text of a stored passage.
func (s *Server) handlePassageResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Refrag == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractPassageID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	passage, err := s.ports.Refrag.GetPassage(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting passage: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     passage.Text,
		}},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractPassageID extracts the passage ID from a URI like refrag://passages/{passageId}.
func extractPassageID(uri string) string {
	const prefix = uriScheme + "passages/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
