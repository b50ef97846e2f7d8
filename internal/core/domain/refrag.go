package domain

import (
	"fmt"
	"strings"
)

// Retrieval defaults.
const (
	DefaultRetrievalK      = 5
	DefaultRetrievalBudget = 2
)

// RefragOptions controls one pipeline run. Zero K and nil Budget fall back
// to configured defaults.
type RefragOptions struct {
	// K is the number of candidates to retrieve.
	K int

	// Budget is the maximum number of fragments to select. Zero selects
	// nothing.
	Budget *int

	// Config selects the strategy and its parameters.
	Config SelectionConfig

	// Generate asks the pipeline to produce an answer with the LLM.
	Generate bool
}

// BudgetOf returns n as a RefragOptions budget.
func BudgetOf(n int) *int {
	return &n
}

// RefragContext is the outcome of retrieving and selecting fragments for a query.
type RefragContext struct {
	// Query is the original text query.
	Query string

	// QueryVector is the query embedding the candidates were selected against.
	QueryVector Vector

	// Candidates are the retrieved fragments with the selection flag attached.
	Candidates []Candidate

	// Selection is the selector result over Candidates.
	Selection *SelectionResult

	// Answer is the generated answer, empty when generation was skipped or failed.
	Answer string

	// GenerationError describes a failed generation.
	GenerationError string
}

// SelectedCandidates returns the chosen candidates in selection order.
func (c *RefragContext) SelectedCandidates() []Candidate {
	if c.Selection == nil {
		return nil
	}
	out := make([]Candidate, 0, len(c.Selection.Selected))
	for _, s := range c.Selection.Selected {
		if s.Index >= 0 && s.Index < len(c.Candidates) {
			out = append(out, c.Candidates[s.Index])
		}
	}
	return out
}

// DefaultAnswerPrompt is the generation template. The first placeholder takes
// the rendered passages, the second the query.
const DefaultAnswerPrompt = "Use the following context to answer the query.\n\nContext:\n%s\nQuery: %s\n\nAnswer:"

// BuildPrompt renders the generation prompt with DefaultAnswerPrompt.
func BuildPrompt(query string, candidates []Candidate) string {
	return RenderPrompt(DefaultAnswerPrompt, query, candidates)
}

// RenderPrompt fills template with the passage block and the query. Every
// candidate is listed with its selection flag so the model can weigh the
// chosen fragments. Templates without exactly two %s verbs fall back to
// DefaultAnswerPrompt.
func RenderPrompt(template, query string, candidates []Candidate) string {
	if strings.Count(template, "%s") != 2 || strings.Count(template, "%") != 2 {
		template = DefaultAnswerPrompt
	}
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "Passage %d: %s (selected: %t)\n", i, c.Text(), c.Selected())
	}
	return fmt.Sprintf(template, b.String(), query)
}
