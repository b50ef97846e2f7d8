package domain

import (
	"fmt"
	"strings"
	"time"
)

// Passage is a stored fragment: a span of text with its embedding.
type Passage struct {
	// ID is the unique identifier for the passage.
	ID string

	// Text is the fragment content.
	Text string

	// Vector is the embedding of Text.
	Vector Vector

	// ParentDocID links the passage to the document it was cut from.
	ParentDocID string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the passage was stored.
	CreatedAt time.Time
}

// Validate checks the passage is storable. When expectedDim is non-zero the
// vector must have exactly that many components.
func (p Passage) Validate(expectedDim int) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("passage id is empty: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("passage %s: text is empty: %w", p.ID, ErrInvalidInput)
	}
	if len(p.Vector) == 0 {
		return fmt.Errorf("passage %s: embedding is empty: %w", p.ID, ErrInvalidInput)
	}
	if expectedDim > 0 && len(p.Vector) != expectedDim {
		return fmt.Errorf("passage %s has %d dimensions, expected %d: %w",
			p.ID, len(p.Vector), expectedDim, ErrDimensionMismatch)
	}
	return nil
}

// Candidate converts the passage into a selector candidate. The candidate
// metadata is a copy of the passage metadata plus the text.
func (p Passage) Candidate() Candidate {
	meta := make(map[string]any, len(p.Metadata)+2)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	meta[MetadataKeyText] = p.Text
	if p.ParentDocID != "" {
		meta[MetadataKeyParentDocID] = p.ParentDocID
	}
	return Candidate{ID: p.ID, Vector: p.Vector, Metadata: meta}
}
