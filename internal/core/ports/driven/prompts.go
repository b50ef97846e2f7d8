package driven

// Prompt names understood by PromptStore.
const (
	// PromptAnswer frames selected fragments and the query for generation.
	// Placeholders: context block, then query.
	PromptAnswer = "answer"
)

// PromptStore loads user-customisable prompt templates.
type PromptStore interface {
	// Load returns the template for the named prompt.
	Load(name string) (string, error)

	// Reload drops cached templates so the next Load reads from disk.
	Reload()
}
