package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

var (
	selectBudget    int
	selectStrategy  string
	selectLambda    float64
	selectThreshold float64
	selectJSON      bool
)

var selectCmd = &cobra.Command{
	Use:   "select [file]",
	Short: "Select fragments from embedding vectors",
	Long: `Reads a query vector and candidate vectors as JSON and prints the
fragments the selector keeps, in selection order.

Input (from the file argument, or stdin when omitted or "-"):
  {
    "query": [1, 0],
    "candidates": [
      {"id": "A", "vector": [1, 0], "text": "optional"},
      {"id": "B", "vector": [0, 1]}
    ],
    "budget": 2,
    "strategy": "mmr",
    "lambda": 0.5,
    "variance_threshold": 0.01
  }

A JSON array of such documents, or one document per line, runs every
request in parallel and prints the selections in input order.

Flags override the values in the input. Unset values fall back to the
configured settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().IntVarP(&selectBudget, "budget", "b", domain.DefaultRetrievalBudget, "maximum number of fragments to keep")
	selectCmd.Flags().StringVarP(&selectStrategy, "strategy", "s", "", "mmr, uncertainty, adaptive or ensemble")
	selectCmd.Flags().Float64Var(&selectLambda, "lambda", domain.DefaultLambda, "MMR relevance weight in [0, 1]")
	selectCmd.Flags().Float64Var(&selectThreshold, "variance-threshold", domain.DefaultVarianceThreshold,
		"adaptive diversity threshold")
	selectCmd.Flags().BoolVar(&selectJSON, "json", false, "output the selection as JSON")
	rootCmd.AddCommand(selectCmd)
}

// selectionInput is the JSON document read by `refrag select`.
type selectionInput struct {
	Query             []float32        `json:"query"`
	Candidates        []candidateInput `json:"candidates"`
	Budget            *int             `json:"budget,omitempty"`
	Strategy          string           `json:"strategy,omitempty"`
	Lambda            *float64         `json:"lambda,omitempty"`
	VarianceThreshold *float64         `json:"variance_threshold,omitempty"`
}

type candidateInput struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Text   string    `json:"text,omitempty"`
}

// selectionOutput is the JSON document written by `refrag select --json`.
type selectionOutput struct {
	Strategy  string           `json:"strategy"`
	Requested string           `json:"requested"`
	Selected  []selectedOutput `json:"selected"`
	Scores    []float64        `json:"scores"`
	Diversity float64          `json:"diversity,omitempty"`
}

type selectedOutput struct {
	Index int     `json:"index"`
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

func runSelect(cmd *cobra.Command, args []string) error {
	if selectionService == nil {
		return errSelectionUnavailable
	}

	inputs, batch, err := readSelectionInputs(cmd, args)
	if err != nil {
		return err
	}

	reqs := make([]domain.SelectionRequest, len(inputs))
	for i := range inputs {
		req, err := selectionRequest(cmd, &inputs[i])
		if err != nil {
			if batch {
				return fmt.Errorf("request %d: %w", i, err)
			}
			return err
		}
		reqs[i] = req
	}

	if !batch {
		req := reqs[0]
		result, err := selectionService.Select(cmd.Context(), req.Query, req.Candidates, req.Budget, req.Config)
		if err != nil {
			return fmt.Errorf("selection failed: %w", err)
		}
		if selectJSON {
			return printJSON(cmd, toSelectionOutput(result, req.Candidates))
		}
		return outputSelectTable(cmd, result, req.Candidates)
	}

	results, err := selectionService.SelectBatch(cmd.Context(), reqs)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	if selectJSON {
		out := make([]selectionOutput, len(results))
		for i, result := range results {
			out[i] = toSelectionOutput(result, reqs[i].Candidates)
		}
		return printJSON(cmd, out)
	}

	for i, result := range results {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("Request %d\n", i+1)
		cmd.Println("---------")
		if err := outputSelectTable(cmd, result, reqs[i].Candidates); err != nil {
			return err
		}
	}
	return nil
}

// selectionRequest resolves one input document against flags and settings.
func selectionRequest(cmd *cobra.Command, input *selectionInput) (domain.SelectionRequest, error) {
	budget := defaultBudget()
	if input.Budget != nil {
		budget = *input.Budget
	}
	if cmd.Flags().Changed("budget") {
		budget = selectBudget
	}

	cfg, err := selectionConfigFromFlags(cmd, input.Strategy, input.Lambda, input.VarianceThreshold)
	if err != nil {
		return domain.SelectionRequest{}, err
	}

	candidates := make([]domain.Candidate, len(input.Candidates))
	for i, c := range input.Candidates {
		candidates[i] = domain.Candidate{ID: c.ID, Vector: domain.Vector(c.Vector)}
		if c.Text != "" {
			candidates[i].Metadata = map[string]any{domain.MetadataKeyText: c.Text}
		}
	}

	return domain.SelectionRequest{
		Query:      domain.Vector(input.Query),
		Candidates: candidates,
		Budget:     budget,
		Config:     cfg,
	}, nil
}

// readSelectionInputs reads one document, a JSON array of documents or
// JSON lines. batch is true for arrays and for more than one document.
func readSelectionInputs(cmd *cobra.Command, args []string) (inputs []selectionInput, batch bool, err error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, false, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, errors.New("no selection input")
	}

	if data[0] == '[' {
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, false, fmt.Errorf("failed to parse selection input: %w", err)
		}
		if len(inputs) == 0 {
			return nil, false, errors.New("no selection input")
		}
		return inputs, true, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var input selectionInput
		if err := dec.Decode(&input); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(inputs) > 0 {
				return nil, false, fmt.Errorf("failed to parse selection input %d: %w", len(inputs), err)
			}
			return nil, false, fmt.Errorf("failed to parse selection input: %w", err)
		}
		inputs = append(inputs, input)
	}
	return inputs, len(inputs) > 1, nil
}

func toSelectionOutput(result *domain.SelectionResult, candidates []domain.Candidate) selectionOutput {
	out := selectionOutput{
		Strategy:  result.Strategy.String(),
		Requested: result.Requested.String(),
		Selected:  make([]selectedOutput, len(result.Selected)),
		Scores:    result.Scores,
		Diversity: result.Diversity,
	}
	if out.Scores == nil {
		out.Scores = []float64{}
	}
	for i, s := range result.Selected {
		out.Selected[i] = selectedOutput{
			Index: s.Index,
			ID:    s.ID,
			Score: s.Score,
			Text:  candidates[s.Index].Text(),
		}
	}
	return out
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSelectTable(cmd *cobra.Command, result *domain.SelectionResult, candidates []domain.Candidate) error {
	if len(result.Selected) == 0 {
		cmd.Println("No fragments selected.")
		return nil
	}

	cmd.Printf("Strategy: %s", result.Strategy)
	if result.Requested == domain.StrategyAdaptive {
		cmd.Printf(" (requested adaptive, diversity %.4f)", result.Diversity)
	} else if result.Requested != "" && result.Requested != result.Strategy {
		cmd.Printf(" (requested %s)", result.Requested)
	}
	cmd.Println()
	cmd.Println()

	for i, s := range result.Selected {
		label := s.ID
		if label == "" {
			label = fmt.Sprintf("#%d", s.Index)
		}
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, label, s.Score)
		if text := candidates[s.Index].Text(); text != "" {
			cmd.Printf("      %s\n", truncate(text, 120))
		}
	}

	cmd.Printf("\nSelected %d of %d candidates\n", len(result.Selected), len(candidates))
	return nil
}

// selectionConfigFromFlags layers input values and then changed flags over
// the configured selection defaults.
func selectionConfigFromFlags(
	cmd *cobra.Command, strategy string, lambda, threshold *float64,
) (domain.SelectionConfig, error) {
	cfg := domain.DefaultSelectionConfig()
	if settingsService != nil {
		cfg = settingsService.SelectionConfig()
	}

	if cmd.Flags().Changed("strategy") {
		strategy = flagString(cmd, "strategy")
	}
	if strategy != "" {
		parsed, err := domain.ParseStrategy(strategy)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = parsed
	}

	if lambda != nil {
		cfg.Lambda = *lambda
	}
	if cmd.Flags().Changed("lambda") {
		cfg.Lambda = flagFloat(cmd, "lambda")
	}

	if threshold != nil {
		cfg.VarianceThreshold = *threshold
	}
	if cmd.Flags().Changed("variance-threshold") {
		cfg.VarianceThreshold = flagFloat(cmd, "variance-threshold")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// defaultBudget returns the configured selection budget.
func defaultBudget() int {
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			return settings.Retrieval.Budget
		}
	}
	return domain.DefaultRetrievalBudget
}

//nolint:errcheck // flag is registered on the command
func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

//nolint:errcheck // flag is registered on the command
func flagFloat(cmd *cobra.Command, name string) float64 {
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
