// Package mcp provides an MCP (Model Context Protocol) server adapter for refrag.
// It lets AI assistants run fragment selection and retrieval as tools.
package mcp

import "errors"

// ErrMissingSelectionService is returned when the selection service is not provided.
var ErrMissingSelectionService = errors.New("mcp: selection service is required")

// ErrRetrievalUnavailable is returned by refrag_query when no pipeline is wired.
var ErrRetrievalUnavailable = errors.New("mcp: retrieval is not configured")
