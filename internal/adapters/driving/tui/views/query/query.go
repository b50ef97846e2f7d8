// Package query provides the query view: a text query, the retrieved
// passages, and which of them the selector kept.
package query

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
)

// View is the query view with input, fragment list and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.FragmentList
	statusbar *status.Bar

	refragService    driving.RefragService
	selectionService driving.SelectionService
	settingsService  driving.SettingsService
	ctx              context.Context

	// current is the last retrieval; its selection follows strategy changes.
	current  *domain.RefragContext
	strategy domain.Strategy
	budget   int
	answer   string

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a new query view. The settings service is optional.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	refragService driving.RefragService,
	selectionService driving.SelectionService,
	settingsService driving.SettingsService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:           s,
		keymap:           km,
		input:            input.NewQueryInput(s),
		list:             list.NewFragmentList(s),
		statusbar:        status.NewBar(s, km),
		refragService:    refragService,
		selectionService: selectionService,
		settingsService:  settingsService,
		ctx:              context.Background(),
		width:            80,
		height:           24,
		focusInput:       true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.SelectionCompleted:
		v.handleSelectionCompleted(msg)
		return v, nil

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := v.input.Value()
			if query == "" {
				return v, nil
			}
			v.focusInput = false
			v.input.Blur()
			v.statusbar.SetState(status.StateRetrieving)
			return v, v.runQuery(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(msg.String(), v.keymap.CycleStrategy):
		return v, v.cycleStrategy()
	case keymap.Matches(msg.String(), v.keymap.Generate):
		return v, v.generate()
	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}
	return v, nil
}

// baseConfig returns the configured selection parameters.
func (v *View) baseConfig() domain.SelectionConfig {
	if v.settingsService != nil {
		return v.settingsService.SelectionConfig()
	}
	return domain.DefaultSelectionConfig()
}

// configuredBudget returns the configured selection budget.
func (v *View) configuredBudget() int {
	if v.settingsService != nil {
		if settings, err := v.settingsService.Get(); err == nil {
			return settings.Retrieval.Budget
		}
	}
	return domain.DefaultRetrievalBudget
}

// config returns the selection config for the active strategy.
func (v *View) config() domain.SelectionConfig {
	cfg := v.baseConfig()
	if v.strategy != "" {
		cfg.Strategy = v.strategy
	}
	return cfg
}

func (v *View) runQuery(query string) tea.Cmd {
	if v.budget == 0 {
		v.budget = v.configuredBudget()
	}
	opts := domain.RefragOptions{Budget: domain.BudgetOf(v.budget), Config: v.config()}

	return func() tea.Msg {
		if v.refragService == nil {
			return messages.ErrorOccurred{Err: ErrNoRefragService}
		}
		rc, err := v.refragService.Retrieve(v.ctx, query, opts)
		return messages.QueryCompleted{Context: rc, Err: err}
	}
}

// cycleStrategy moves to the next strategy and re-runs the selector over the
// retrieved candidates without retrieving again.
func (v *View) cycleStrategy() tea.Cmd {
	if v.current == nil || len(v.current.Candidates) == 0 {
		return nil
	}

	next := NextStrategy(v.config().Strategy)
	v.strategy = next
	cfg := v.config()
	rc := v.current
	budget := v.budget

	v.statusbar.SetSelection(next, 0, len(rc.Candidates))
	v.statusbar.SetState(status.StateSelecting)

	return func() tea.Msg {
		if v.selectionService == nil {
			return messages.ErrorOccurred{Err: ErrNoSelectionService}
		}
		result, err := v.selectionService.Select(v.ctx, rc.QueryVector, rc.Candidates, budget, cfg)
		return messages.SelectionCompleted{Strategy: next, Result: result, Err: err}
	}
}

func (v *View) generate() tea.Cmd {
	if v.current == nil {
		return nil
	}
	if v.refragService == nil || !v.refragService.GenerationAvailable() {
		v.statusbar.SetMessage("no LLM configured")
		return nil
	}

	query := v.current.Query
	opts := domain.RefragOptions{Budget: domain.BudgetOf(v.budget), Config: v.config(), Generate: true}
	v.statusbar.SetState(status.StateGenerating)

	return func() tea.Msg {
		rc, err := v.refragService.Forward(v.ctx, query, opts)
		return messages.AnswerCompleted{Context: rc, Err: err}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.answer = ""
	v.showContext(msg.Context)
}

func (v *View) handleSelectionCompleted(msg messages.SelectionCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	if v.current == nil || msg.Result == nil {
		return
	}
	v.err = nil
	v.answer = ""
	v.current.Selection = msg.Result
	v.current.Candidates = reattach(v.current.Candidates, msg.Result)
	v.list.SetSelection(msg.Result)
	v.statusbar.SetSelection(msg.Strategy, len(msg.Result.Selected), len(v.current.Candidates))
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateResults)
}

func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.showContext(msg.Context)
	v.answer = msg.Context.Answer
	if msg.Context.GenerationError != "" {
		v.statusbar.SetMessage("generation failed: " + msg.Context.GenerationError)
	}
}

func (v *View) showContext(rc *domain.RefragContext) {
	v.current = rc
	v.list.SetCandidates(rc.Candidates)
	v.list.SetSelection(rc.Selection)

	strategy := v.config().Strategy
	selected := 0
	if rc.Selection != nil {
		selected = len(rc.Selection.Selected)
		if rc.Selection.Requested != "" {
			strategy = rc.Selection.Requested
		}
	}
	v.statusbar.SetSelection(strategy, selected, len(rc.Candidates))
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateResults)
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// reattach rewrites the selection flag of each candidate for result.
func reattach(candidates []domain.Candidate, result *domain.SelectionResult) []domain.Candidate {
	cleared := make([]domain.Candidate, len(candidates))
	for i, c := range candidates {
		meta := make(map[string]any, len(c.Metadata))
		for k, val := range c.Metadata {
			if k != domain.MetadataKeySelected {
				meta[k] = val
			}
		}
		cleared[i] = domain.Candidate{ID: c.ID, Vector: c.Vector, Metadata: meta}
	}
	return domain.AttachSelection(cleared, result)
}

// NextStrategy returns the strategy after s in AllStrategies, wrapping around.
func NextStrategy(s domain.Strategy) domain.Strategy {
	all := domain.AllStrategies()
	for i, candidate := range all {
		if candidate == s {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	title := v.styles.Title.Render("refrag")
	if strategy := v.statusbar.Strategy(); strategy != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", v.styles.Badge.Render(strategy.String()))
	}
	sections = append(sections, title, "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View())

	if v.answer != "" {
		sections = append(sections, "", v.styles.Answer.Width(max(v.width-4, 20)).Render(v.answer))
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Context returns the last retrieval, or nil.
func (v *View) Context() *domain.RefragContext {
	return v.current
}

// Strategy returns the strategy used for the next selection.
func (v *View) Strategy() domain.Strategy {
	return v.config().Strategy
}

// Answer returns the last generated answer.
func (v *View) Answer() string {
	return v.answer
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to input mode and forgets the last retrieval. The
// chosen strategy is kept.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetCandidates(nil)
	v.current = nil
	v.answer = ""
	v.budget = 0
	v.err = nil
	v.statusbar.Clear()
}
