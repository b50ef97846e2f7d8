package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

var (
	askK         int
	askBudget    int
	askStrategy  string
	askLambda    float64
	askThreshold float64
	askGenerate  bool
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Retrieve and select passages for a query",
	Long: `Embeds the query, retrieves the closest stored passages and selects the
subset worth passing to a language model.

With --generate the selected context is sent to the configured LLM and the
answer is printed below the passages.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 0, "number of passages to retrieve (0 = configured default)")
	askCmd.Flags().IntVarP(&askBudget, "budget", "b", 0, "number of passages to select (default from settings)")
	askCmd.Flags().StringVarP(&askStrategy, "strategy", "s", "", "mmr, uncertainty, adaptive or ensemble")
	askCmd.Flags().Float64Var(&askLambda, "lambda", domain.DefaultLambda, "MMR relevance weight in [0, 1]")
	askCmd.Flags().Float64Var(&askThreshold, "variance-threshold", domain.DefaultVarianceThreshold,
		"adaptive diversity threshold")
	askCmd.Flags().BoolVarP(&askGenerate, "generate", "g", false, "generate an answer with the configured LLM")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(askCmd)
}

// askOutput is the JSON document written by `refrag ask --json`.
type askOutput struct {
	Query           string          `json:"query"`
	Strategy        string          `json:"strategy"`
	Passages        []passageOutput `json:"passages"`
	Answer          string          `json:"answer,omitempty"`
	GenerationError string          `json:"generation_error,omitempty"`
}

type passageOutput struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
	Selected  bool    `json:"selected"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := args[0]

	if refragService == nil {
		return errRefragUnavailable
	}

	opts := domain.RefragOptions{
		K:        askK,
		Generate: askGenerate,
	}
	if cmd.Flags().Changed("budget") {
		opts.Budget = domain.BudgetOf(askBudget)
	}
	if cmd.Flags().Changed("strategy") || cmd.Flags().Changed("lambda") || cmd.Flags().Changed("variance-threshold") {
		cfg, err := selectionConfigFromFlags(cmd, "", nil, nil)
		if err != nil {
			return err
		}
		opts.Config = cfg
	}

	rc, err := refragService.Forward(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, rc)
	}
	return outputAskTable(cmd, rc)
}

func outputAskJSON(cmd *cobra.Command, rc *domain.RefragContext) error {
	out := askOutput{
		Query:           rc.Query,
		Passages:        make([]passageOutput, len(rc.Candidates)),
		Answer:          rc.Answer,
		GenerationError: rc.GenerationError,
	}
	if rc.Selection != nil {
		out.Strategy = rc.Selection.Strategy.String()
	}
	for i, c := range rc.Candidates {
		out.Passages[i] = passageOutput{
			ID:        c.ID,
			Text:      c.Text(),
			Relevance: relevanceAt(rc, i),
			Selected:  c.Selected(),
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAskTable(cmd *cobra.Command, rc *domain.RefragContext) error {
	if len(rc.Candidates) == 0 {
		cmd.Println("No passages found.")
		return nil
	}

	if rc.Selection != nil {
		cmd.Printf("Strategy: %s\n\n", rc.Selection.Strategy)
	}

	cmd.Println("Passages:")
	cmd.Println()
	for i, c := range rc.Candidates {
		marker := " "
		if c.Selected() {
			marker = "*"
		}
		cmd.Printf("  %s [%d] %s (%.4f)\n", marker, i+1, c.ID, relevanceAt(rc, i))
		if text := c.Text(); text != "" {
			cmd.Printf("        %s\n", truncate(text, 120))
		}
	}
	cmd.Printf("\n  * selected (%d of %d)\n", len(rc.SelectedCandidates()), len(rc.Candidates))

	if rc.Answer != "" {
		cmd.Println()
		cmd.Println("Answer:")
		cmd.Println(rc.Answer)
	}
	if rc.GenerationError != "" {
		cmd.Printf("\nGeneration skipped: %s\n", rc.GenerationError)
	}
	return nil
}

func relevanceAt(rc *domain.RefragContext, i int) float64 {
	if rc.Selection == nil || i >= len(rc.Selection.Scores) {
		return 0
	}
	return rc.Selection.Scores[i]
}
