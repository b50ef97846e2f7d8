// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/refrag/internal/core/domain"
)

// linesPerFragment is the height of one rendered fragment.
const linesPerFragment = 2

// FragmentList shows retrieved candidates in retrieval order and marks the
// ones the selector kept with their selection rank.
type FragmentList struct {
	candidates []domain.Candidate
	scores     []float64
	ranks      map[int]int
	cursor     int
	styles     *styles.Styles
	width      int
	height     int
}

// NewFragmentList creates an empty fragment list.
func NewFragmentList(s *styles.Styles) *FragmentList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &FragmentList{
		ranks:  map[int]int{},
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (f *FragmentList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation.
func (f *FragmentList) Update(msg tea.Msg) (*FragmentList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			f.MoveUp()
		case "down", "j":
			f.MoveDown()
		}
	}
	return f, nil
}

// SetCandidates replaces the candidates and clears any selection.
func (f *FragmentList) SetCandidates(candidates []domain.Candidate) {
	f.candidates = candidates
	f.scores = nil
	f.ranks = map[int]int{}
	f.cursor = 0
}

// SetSelection marks the candidates chosen by result. Relevance scores are
// taken from the result as well.
func (f *FragmentList) SetSelection(result *domain.SelectionResult) {
	f.ranks = map[int]int{}
	f.scores = nil
	if result == nil {
		return
	}
	f.scores = result.Scores
	for rank, s := range result.Selected {
		f.ranks[s.Index] = rank + 1
	}
}

// View renders the list.
func (f *FragmentList) View() string {
	if len(f.candidates) == 0 {
		return f.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(f.candidates)*linesPerFragment+2)
	header := fmt.Sprintf("Passages (%d retrieved, %d selected)", len(f.candidates), len(f.ranks))
	lines = append(lines, f.styles.Subtitle.Render(header), "")

	visible := max((f.height-2)/linesPerFragment, 1)
	start := 0
	if f.cursor >= visible {
		start = f.cursor - visible + 1
	}
	end := min(start+visible, len(f.candidates))

	for i := start; i < end; i++ {
		lines = append(lines, f.renderFragment(i))
	}
	return strings.Join(lines, "\n")
}

func (f *FragmentList) renderFragment(i int) string {
	c := f.candidates[i]

	cursor := "  "
	if i == f.cursor {
		cursor = "> "
	}

	marker := f.styles.Muted.Render("[ ]")
	if rank, ok := f.ranks[i]; ok {
		marker = f.styles.Marker.Render(fmt.Sprintf("[%d]", rank))
	}

	label := c.ID
	if label == "" {
		label = fmt.Sprintf("#%d", i+1)
	}
	maxLabel := max(f.width-24, 10)
	label = clip(label, maxLabel)

	score := ""
	if i < len(f.scores) {
		score = fmt.Sprintf("%.4f", f.scores[i])
	}

	var head string
	if i == f.cursor {
		head = cursor + marker + " " + f.styles.Selected.Render(fmt.Sprintf("%-*s", maxLabel, label)) + "  " + score
	} else {
		head = cursor + marker + " " + f.styles.Normal.Render(fmt.Sprintf("%-*s", maxLabel, label)) +
			"  " + f.styles.Muted.Render(score)
	}

	preview := strings.Join(strings.Fields(c.Text()), " ")
	preview = clip(preview, max(f.width-8, 20))
	return head + "\n" + f.styles.Muted.Render("      "+preview)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Candidates returns the displayed candidates.
func (f *FragmentList) Candidates() []domain.Candidate {
	return f.candidates
}

// Cursor returns the index under the cursor.
func (f *FragmentList) Cursor() int {
	return f.cursor
}

// Current returns the candidate under the cursor, or nil if the list is empty.
func (f *FragmentList) Current() *domain.Candidate {
	if f.cursor < 0 || f.cursor >= len(f.candidates) {
		return nil
	}
	return &f.candidates[f.cursor]
}

// Rank returns the 1-based selection rank of candidate i, or 0 when it was
// not selected.
func (f *FragmentList) Rank(i int) int {
	return f.ranks[i]
}

// SelectedCount returns the number of selected candidates.
func (f *FragmentList) SelectedCount() int {
	return len(f.ranks)
}

// MoveUp moves the cursor up.
func (f *FragmentList) MoveUp() {
	if f.cursor > 0 {
		f.cursor--
	}
}

// MoveDown moves the cursor down.
func (f *FragmentList) MoveDown() {
	if f.cursor < len(f.candidates)-1 {
		f.cursor++
	}
}

// SetDimensions sets the component dimensions.
func (f *FragmentList) SetDimensions(width, height int) {
	f.width = width
	f.height = height
}

// IsEmpty returns whether the list is empty.
func (f *FragmentList) IsEmpty() bool {
	return len(f.candidates) == 0
}
