// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
)

// ErrNoSettingsService is reported when the view has no settings service.
var ErrNoSettingsService = errors.New("settings service not available")

// Section tracks which settings section is active.
type Section int

const (
	SectionOverview Section = iota
	SectionSensor
	SectionEmbedding
	SectionLLM
)

// Field is an editable value in the sensor section.
type Field int

const (
	FieldStrategy Field = iota
	FieldLambda
	FieldVarianceThreshold
	FieldK
	FieldBudget
	fieldCount
)

// Step sizes for numeric fields.
const (
	lambdaStep    = 0.1
	thresholdStep = 0.005
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyTab   = "tab"
)

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	settingsService driving.SettingsService

	// Current settings
	settings *domain.AppSettings
	err      error

	// Unsaved sensor and retrieval values.
	sensor    domain.SensorSettings
	retrieval domain.RetrievalSettings
	dirty     bool

	// Navigation state
	section      Section
	selected     int // selection within current section
	focusedField int // for text input focus

	// Text inputs for API keys
	embeddingAPIKeyInput textinput.Model
	llmAPIKeyInput       textinput.Model

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:               s,
		keymap:               keymap.DefaultKeyMap(),
		settingsService:      settingsService,
		section:              SectionOverview,
		embeddingAPIKeyInput: newAPIKeyInput(),
		llmAPIKeyInput:       newAPIKeyInput(),
	}
}

func newAPIKeyInput() textinput.Model {
	in := textinput.New()
	in.Placeholder = "Enter API key"
	in.EchoMode = textinput.EchoPassword
	in.CharLimit = 256
	return in
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := v.settingsService.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.settings = msg.Settings
			v.err = nil
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.dirty = false
		v.section = SectionOverview
		v.selected = 0
		v.resetInputs()
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses based on current section.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == "esc" {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.section = SectionOverview
		v.selected = 0
		v.dirty = false
		v.resetInputs()
		return v, nil
	}

	switch v.section {
	case SectionOverview:
		return v.handleOverviewKeys(msg)
	case SectionSensor:
		return v.handleSensorKeys(msg)
	case SectionEmbedding:
		return v.handleProviderKeys(msg, &v.embeddingAPIKeyInput, v.setEmbeddingProvider)
	case SectionLLM:
		return v.handleProviderKeys(msg, &v.llmAPIKeyInput, v.setLLMProvider)
	}

	return v, nil
}

func (v *View) handleOverviewKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Overview menu: Sensor, Embedding, LLM
	maxItems := 3

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < maxItems-1 {
			v.selected++
		}
	case keyEnter:
		if v.settings == nil {
			return v, nil
		}
		switch v.selected {
		case 0:
			v.section = SectionSensor
			v.selected = int(FieldStrategy)
			v.sensor = v.settings.Sensor
			v.retrieval = v.settings.Retrieval
			v.dirty = false
		case 1:
			v.section = SectionEmbedding
			v.selected = providerIndex(v.settings.Embedding.Provider)
		case 2:
			v.section = SectionLLM
			v.selected = providerIndex(v.settings.LLM.Provider)
		}
	}
	return v, nil
}

func (v *View) handleSensorKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < int(fieldCount)-1 {
			v.selected++
		}
	case keymap.Matches(key, v.keymap.Increase):
		v.adjust(Field(v.selected), 1)
	case keymap.Matches(key, v.keymap.Decrease):
		v.adjust(Field(v.selected), -1)
	case keymap.Matches(key, v.keymap.Save):
		return v, v.saveSensor()
	}
	return v, nil
}

// adjust moves field one step in direction dir, clamped to its valid range.
func (v *View) adjust(field Field, dir int) {
	switch field {
	case FieldStrategy:
		v.sensor.Strategy = cycleStrategy(v.sensor.Strategy, dir)
	case FieldLambda:
		v.sensor.Lambda = clamp(round(v.sensor.Lambda+float64(dir)*lambdaStep), 0, 1)
	case FieldVarianceThreshold:
		v.sensor.VarianceThreshold = math.Max(round(v.sensor.VarianceThreshold+float64(dir)*thresholdStep), 0)
	case FieldK:
		v.retrieval.K = max(v.retrieval.K+dir, 1)
	case FieldBudget:
		v.retrieval.Budget = max(v.retrieval.Budget+dir, 0)
	case fieldCount:
		return
	}
	v.dirty = true
}

// cycleStrategy steps through the configurable strategies, wrapping at both ends.
func cycleStrategy(s domain.Strategy, dir int) domain.Strategy {
	all := domain.AllStrategies()
	for i, candidate := range all {
		if candidate == s {
			return all[(i+dir+len(all))%len(all)]
		}
	}
	return all[0]
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// round trims accumulated float error from repeated steps.
func round(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func (v *View) handleProviderKeys(
	msg tea.KeyMsg,
	apiKeyInput *textinput.Model,
	save func(domain.AIProvider, string) tea.Cmd,
) (*View, tea.Cmd) {
	providers := domain.AllAIProviders()

	// If we're focused on the API key input
	if v.focusedField == 1 {
		switch msg.String() {
		case keyTab, "shift+tab":
			v.focusedField = 0
			apiKeyInput.Blur()
			return v, nil
		case keyEnter:
			if v.selected >= 0 && v.selected < len(providers) {
				return v, save(providers[v.selected], apiKeyInput.Value())
			}
		default:
			var cmd tea.Cmd
			*apiKeyInput, cmd = apiKeyInput.Update(msg)
			return v, cmd
		}
		return v, nil
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < len(providers)-1 {
			v.selected++
		}
	case keyTab:
		if v.selected >= 0 && v.selected < len(providers) && providers[v.selected].RequiresAPIKey() {
			v.focusedField = 1
			return v, apiKeyInput.Focus()
		}
	case keyEnter:
		if v.selected >= 0 && v.selected < len(providers) {
			provider := providers[v.selected]
			if provider.RequiresAPIKey() {
				v.focusedField = 1
				return v, apiKeyInput.Focus()
			}
			return v, save(provider, "")
		}
	}
	return v, nil
}

// Commands to update settings.

func (v *View) saveSensor() tea.Cmd {
	sensor := v.sensor
	retrieval := v.retrieval
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		if err := v.settingsService.SetSensor(sensor); err != nil {
			return messages.SettingsSaved{Err: err}
		}
		return messages.SettingsSaved{Err: v.settingsService.SetRetrieval(retrieval)}
	}
}

func (v *View) setEmbeddingProvider(provider domain.AIProvider, apiKey string) tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		model := domain.DefaultEmbeddingModels()[provider]
		return messages.SettingsSaved{Err: v.settingsService.SetEmbeddingProvider(provider, model, apiKey)}
	}
}

func (v *View) setLLMProvider(provider domain.AIProvider, apiKey string) tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		model := domain.DefaultLLMModels()[provider]
		return messages.SettingsSaved{Err: v.settingsService.SetLLMProvider(provider, model, apiKey)}
	}
}

func providerIndex(current domain.AIProvider) int {
	for i, p := range domain.AllAIProviders() {
		if p == current {
			return i
		}
	}
	return 0
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		b.WriteString(v.renderOverview())
	case SectionSensor:
		b.WriteString(v.renderSensor())
	case SectionEmbedding:
		b.WriteString(v.renderProviderSelect(
			"Select Embedding Provider", v.settings.Embedding.Provider,
			domain.DefaultEmbeddingModels(), v.embeddingAPIKeyInput,
		))
	case SectionLLM:
		b.WriteString(v.renderProviderSelect(
			"Select LLM Provider", v.settings.LLM.Provider,
			domain.DefaultLLMModels(), v.llmAPIKeyInput,
		))
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderOverview() string {
	var b strings.Builder

	sensor := v.settings.Sensor
	sensorValue := fmt.Sprintf("%s, lambda %.2f, threshold %.3f, k %d, budget %d",
		sensor.Strategy, sensor.Lambda, sensor.VarianceThreshold,
		v.settings.Retrieval.K, v.settings.Retrieval.Budget)

	embeddingValue := "Not Set"
	if v.settings.Embedding.Provider != "" {
		embeddingValue = fmt.Sprintf("%s (%s)", v.settings.Embedding.Provider.Description(), v.settings.Embedding.Model)
	}

	llmValue := "Not Set"
	if v.settings.LLM.Provider != "" {
		llmValue = fmt.Sprintf("%s (%s)", v.settings.LLM.Provider.Description(), v.settings.LLM.Model)
	}

	items := []struct {
		label  string
		value  string
		status string
	}{
		{label: "Sensor", value: sensorValue},
		{label: "Embedding Provider", value: embeddingValue, status: v.status(v.settings.Embedding.IsConfigured())},
		{label: "LLM Provider", value: llmValue, status: v.status(v.settings.LLM.IsConfigured())},
	}

	for i, item := range items {
		indicator := "  "
		if i == v.selected {
			indicator = "> "
		}

		line := fmt.Sprintf("%s%s: %s", indicator, item.label, item.value)
		if item.status != "" {
			line += " " + item.status
		}

		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if !v.settings.Embedding.IsConfigured() {
		b.WriteString(v.styles.Warning.Render("Warning: queries need an embedding provider"))
	} else {
		b.WriteString(v.styles.Success.Render("Configuration is valid"))
	}

	return b.String()
}

func (v *View) status(configured bool) string {
	if configured {
		return v.styles.Success.Render("[configured]")
	}
	return v.styles.Warning.Render("[not configured]")
}

func (v *View) renderSensor() string {
	var b strings.Builder

	title := "Sensor"
	if v.dirty {
		title += " (unsaved)"
	}
	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value string
		hint  string
	}{
		{"Strategy", v.sensor.Strategy.String(), v.sensor.Strategy.Description()},
		{"Lambda", fmt.Sprintf("%.2f", v.sensor.Lambda), "relevance weight in MMR"},
		{"Variance threshold", fmt.Sprintf("%.3f", v.sensor.VarianceThreshold), "adaptive switch point"},
		{"Candidates (k)", fmt.Sprintf("%d", v.retrieval.K), "passages retrieved per query"},
		{"Budget", fmt.Sprintf("%d", v.retrieval.Budget), "passages selected per query"},
	}

	for i, row := range rows {
		indicator := "  "
		style := v.styles.Normal
		if i == v.selected {
			indicator = "> "
			style = v.styles.Selected
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%-20s %s", indicator, row.label, row.value)))
		b.WriteString(v.styles.Muted.Render("  " + row.hint))
		b.WriteString("\n")
	}

	if v.retrieval.Budget > v.retrieval.K {
		b.WriteString("\n")
		b.WriteString(v.styles.Warning.Render("Budget exceeds k: every candidate will be selected"))
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderProviderSelect(
	title string, current domain.AIProvider, models map[domain.AIProvider]string, apiKeyInput textinput.Model,
) string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	providers := domain.AllAIProviders()
	for i, provider := range providers {
		focused := i == v.selected && v.focusedField == 0
		indicator := "  "
		if focused {
			indicator = "> "
		}

		marker := ""
		if provider == current {
			marker = v.styles.Success.Render(" (current)")
		}

		line := fmt.Sprintf("%s%s%s", indicator, provider.Description(), marker)
		if focused {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")

		if model, ok := models[provider]; ok {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("    Model: %s", model)))
			b.WriteString("\n")
		}
	}

	if v.selected >= 0 && v.selected < len(providers) && providers[v.selected].RequiresAPIKey() {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render("API Key:"))
		b.WriteString("\n")
		b.WriteString(apiKeyInput.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderHelp() string {
	switch v.section {
	case SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
	case SectionSensor:
		return v.styles.Help.Render("[j/k] field  [←/→] adjust  [s] save  [esc] discard")
	case SectionEmbedding, SectionLLM:
		if v.focusedField == 1 {
			return v.styles.Help.Render("[tab] back to list  [enter] save  [esc] back")
		}
		return v.styles.Help.Render("[j/k] navigate  [tab] API key  [enter] select  [esc] back")
	default:
		return ""
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Sensor returns the sensor values being edited.
func (v *View) Sensor() domain.SensorSettings {
	return v.sensor
}

// Retrieval returns the retrieval values being edited.
func (v *View) Retrieval() domain.RetrievalSettings {
	return v.retrieval
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}

func (v *View) resetInputs() {
	v.focusedField = 0
	v.embeddingAPIKeyInput.SetValue("")
	v.embeddingAPIKeyInput.Blur()
	v.llmAPIKeyInput.SetValue("")
	v.llmAPIKeyInput.Blur()
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.section = SectionOverview
	v.selected = 0
	v.dirty = false
	v.err = nil
	v.resetInputs()
}
