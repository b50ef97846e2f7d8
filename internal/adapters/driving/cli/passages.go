package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

var passagesCmd = &cobra.Command{
	Use:   "passages",
	Short: "Manage stored passages",
	Long:  `Import, count, view, or delete the passages refrag retrieves from.`,
}

var passagesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import passages from JSON or JSON Lines",
	Long: `Imports passages from a JSON array or from JSON Lines (one object per line).
Reads stdin when the file is omitted or "-".

Each passage:
  {"id": "optional", "text": "required", "vector": [0.1, ...],
   "parent_doc_id": "optional", "metadata": {"any": "value"}}

Passages without an id get a generated one. Passages without a vector are
embedded with the configured embedding provider.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPassagesImport,
}

var passagesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored passages",
	Args:  cobra.NoArgs,
	RunE:  runPassagesCount,
}

var passagesGetCmd = &cobra.Command{
	Use:   "get [passage-id]",
	Short: "Show a stored passage",
	Args:  cobra.ExactArgs(1),
	RunE:  runPassagesGet,
}

var passagesDeleteCmd = &cobra.Command{
	Use:   "delete [passage-id]",
	Short: "Delete a stored passage",
	Args:  cobra.ExactArgs(1),
	RunE:  runPassagesDelete,
}

func init() {
	passagesCmd.AddCommand(passagesImportCmd)
	passagesCmd.AddCommand(passagesCountCmd)
	passagesCmd.AddCommand(passagesGetCmd)
	passagesCmd.AddCommand(passagesDeleteCmd)
	rootCmd.AddCommand(passagesCmd)
}

// passageInput is one imported passage.
type passageInput struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Vector      []float32      `json:"vector"`
	ParentDocID string         `json:"parent_doc_id"`
	Metadata    map[string]any `json:"metadata"`
}

func (p passageInput) passage() domain.Passage {
	return domain.Passage{
		ID:          p.ID,
		Text:        p.Text,
		Vector:      domain.Vector(p.Vector),
		ParentDocID: p.ParentDocID,
		Metadata:    p.Metadata,
	}
}

func runPassagesImport(cmd *cobra.Command, args []string) error {
	if refragService == nil {
		return errRefragUnavailable
	}

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	inputs, err := decodePassages(r)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		cmd.Println("No passages to import.")
		return nil
	}

	passages := make([]domain.Passage, len(inputs))
	for i, in := range inputs {
		passages[i] = in.passage()
	}

	ids, err := refragService.AddPassages(cmd.Context(), passages)
	if err != nil {
		return fmt.Errorf("failed to import passages: %w", err)
	}

	cmd.Printf("Imported %d passages.\n", len(ids))
	return nil
}

// decodePassages accepts a JSON array or JSON Lines.
func decodePassages(r io.Reader) ([]passageInput, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if first == '[' {
		var inputs []passageInput
		if err := json.NewDecoder(br).Decode(&inputs); err != nil {
			return nil, fmt.Errorf("failed to parse passages: %w", err)
		}
		return inputs, nil
	}

	var inputs []passageInput
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var in passageInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse passage: %w", line, err)
		}
		inputs = append(inputs, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return inputs, nil
}

// peekNonSpace skips leading whitespace and returns the next byte unread.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		return b, br.UnreadByte()
	}
}

func runPassagesCount(cmd *cobra.Command, _ []string) error {
	if refragService == nil {
		return errRefragUnavailable
	}

	n, err := refragService.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count passages: %w", err)
	}

	cmd.Printf("%d passages\n", n)
	return nil
}

func runPassagesGet(cmd *cobra.Command, args []string) error {
	if refragService == nil {
		return errRefragUnavailable
	}

	id := args[0]

	p, err := refragService.GetPassage(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get passage: %w", err)
	}

	cmd.Printf("Passage: %s\n\n", p.ID)
	if p.ParentDocID != "" {
		cmd.Printf("  Document:   %s\n", p.ParentDocID)
	}
	cmd.Printf("  Dimensions: %d\n", p.Vector.Dim())
	if !p.CreatedAt.IsZero() {
		cmd.Printf("  Created:    %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if len(p.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		keys := make([]string, 0, len(p.Metadata))
		for k := range p.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("    %s: %v\n", k, p.Metadata[k])
		}
	}

	cmd.Println()
	cmd.Println(strings.TrimSpace(p.Text))
	return nil
}

func runPassagesDelete(cmd *cobra.Command, args []string) error {
	if refragService == nil {
		return errRefragUnavailable
	}

	id := args[0]

	if err := refragService.DeletePassage(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete passage: %w", err)
	}

	cmd.Printf("Passage %s deleted.\n", id)
	return nil
}
