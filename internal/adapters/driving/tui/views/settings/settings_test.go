package settings

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
)

// MockSettingsService is a mock implementation of driving.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

var _ driving.SettingsService = (*MockSettingsService)(nil)

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	return m.Called(settings).Error(0)
}

func (m *MockSettingsService) SetSensor(sensor domain.SensorSettings) error {
	return m.Called(sensor).Error(0)
}

func (m *MockSettingsService) SetRetrieval(retrieval domain.RetrievalSettings) error {
	return m.Called(retrieval).Error(0)
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	return m.Called(provider, model, apiKey).Error(0)
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	return m.Called(provider, model, apiKey).Error(0)
}

func (m *MockSettingsService) SelectionConfig() domain.SelectionConfig {
	return m.Called().Get(0).(domain.SelectionConfig)
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return m.Called().Get(0).(domain.AppSettings)
}

func (m *MockSettingsService) ValidateEmbeddingConfig() error {
	return m.Called().Error(0)
}

func (m *MockSettingsService) ValidateLLMConfig() error {
	return m.Called().Error(0)
}

func defaultSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	return &s
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// loaded returns a view with settings loaded, ready to render.
func loaded(svc driving.SettingsService) *View {
	view := NewView(nil, svc)
	view.SetDimensions(100, 40)
	view.Update(messages.SettingsLoaded{Settings: defaultSettings()})
	return view
}

func enterSensor(t *testing.T, view *View) {
	t.Helper()
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, SectionSensor, view.Section())
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, SectionOverview, view.Section())
}

func TestView_Init_LoadsSettings(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("Get").Return(defaultSettings(), nil)
	view := NewView(nil, svc)

	cmd := view.Init()
	require.NotNil(t, cmd)

	msg, ok := cmd().(messages.SettingsLoaded)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, domain.StrategyMMR, msg.Settings.Sensor.Strategy)
	svc.AssertExpectations(t)
}

func TestView_Init_NoService(t *testing.T) {
	view := NewView(nil, nil)

	msg, ok := view.Init()().(messages.SettingsLoaded)

	require.True(t, ok)
	assert.ErrorIs(t, msg.Err, ErrNoSettingsService)
}

func TestView_View_Loading(t *testing.T) {
	view := NewView(nil, nil)

	assert.Contains(t, view.View(), "Loading settings...")
}

func TestView_View_Overview(t *testing.T) {
	view := loaded(nil)

	output := view.View()

	assert.Contains(t, output, "Sensor: mmr, lambda 0.50")
	assert.Contains(t, output, "Embedding Provider: Not Set")
	assert.Contains(t, output, "queries need an embedding provider")
}

func TestView_Overview_Navigation(t *testing.T) {
	view := loaded(nil)

	view.Update(key('j'))
	view.Update(key('j'))
	view.Update(key('j'))
	assert.Equal(t, 2, view.selected)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SectionLLM, view.Section())
}

func TestView_Esc_FromOverview(t *testing.T) {
	view := loaded(nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewMenu, changed.View)
}

func TestView_Esc_DiscardsEdits(t *testing.T) {
	view := loaded(nil)
	enterSensor(t, view)
	view.Update(tea.KeyMsg{Type: tea.KeyRight})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.Equal(t, SectionOverview, view.Section())
	assert.False(t, view.dirty)
}

func TestView_Sensor_CycleStrategy(t *testing.T) {
	view := loaded(nil)
	enterSensor(t, view)

	view.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, domain.StrategyUncertainty, view.Sensor().Strategy)

	view.Update(tea.KeyMsg{Type: tea.KeyLeft})
	view.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, domain.StrategyEnsemble, view.Sensor().Strategy)
	assert.Contains(t, view.View(), "(unsaved)")
}

func TestView_Sensor_AdjustLambda_Clamped(t *testing.T) {
	view := loaded(nil)
	enterSensor(t, view)
	view.Update(key('j'))

	for range 8 {
		view.Update(key('+'))
	}
	assert.InDelta(t, 1.0, view.Sensor().Lambda, 1e-9)

	for range 12 {
		view.Update(key('-'))
	}
	assert.InDelta(t, 0.0, view.Sensor().Lambda, 1e-9)
}

func TestView_Sensor_AdjustThreshold(t *testing.T) {
	view := loaded(nil)
	enterSensor(t, view)
	view.Update(key('j'))
	view.Update(key('j'))

	view.Update(key('+'))
	assert.InDelta(t, 0.015, view.Sensor().VarianceThreshold, 1e-9)

	for range 5 {
		view.Update(key('-'))
	}
	assert.InDelta(t, 0.0, view.Sensor().VarianceThreshold, 1e-9)
}

func TestView_Sensor_AdjustRetrieval(t *testing.T) {
	view := loaded(nil)
	enterSensor(t, view)
	view.selected = int(FieldK)

	for range 10 {
		view.Update(key('-'))
	}
	assert.Equal(t, 1, view.Retrieval().K)

	view.Update(key('j'))
	view.Update(key('+'))
	assert.Equal(t, domain.DefaultRetrievalBudget+1, view.Retrieval().Budget)
	assert.Contains(t, view.View(), "Budget exceeds k")
}

func TestView_Sensor_Save(t *testing.T) {
	svc := new(MockSettingsService)
	want := domain.SensorSettings{
		Strategy:          domain.StrategyUncertainty,
		Lambda:            domain.DefaultLambda,
		VarianceThreshold: domain.DefaultVarianceThreshold,
	}
	svc.On("SetSensor", want).Return(nil)
	svc.On("SetRetrieval", domain.RetrievalSettings{K: domain.DefaultRetrievalK, Budget: domain.DefaultRetrievalBudget}).
		Return(nil)
	svc.On("Get").Return(defaultSettings(), nil)

	view := loaded(svc)
	enterSensor(t, view)
	view.Update(tea.KeyMsg{Type: tea.KeyRight})

	_, cmd := view.Update(key('s'))
	require.NotNil(t, cmd)
	saved, ok := cmd().(messages.SettingsSaved)
	require.True(t, ok)
	require.NoError(t, saved.Err)

	_, reload := view.Update(saved)
	require.NotNil(t, reload)
	assert.Equal(t, SectionOverview, view.Section())

	loadedMsg, ok := reload().(messages.SettingsLoaded)
	require.True(t, ok)
	require.NoError(t, loadedMsg.Err)
	view.Update(loadedMsg)
	svc.AssertExpectations(t)
}

func TestView_Sensor_SaveError(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetSensor", mock.Anything).Return(domain.ErrInvalidConfig)

	view := loaded(svc)
	enterSensor(t, view)

	_, cmd := view.Update(key('s'))
	view.Update(cmd())

	assert.ErrorIs(t, view.Err(), domain.ErrInvalidConfig)
	assert.Equal(t, SectionSensor, view.Section())
	svc.AssertNotCalled(t, "SetRetrieval", mock.Anything)
}

func TestView_Embedding_LocalProvider(t *testing.T) {
	svc := new(MockSettingsService)
	svc.On("SetEmbeddingProvider", domain.AIProviderOllama, mock.Anything, "").Return(nil)

	view := loaded(svc)
	view.Update(key('j'))
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, SectionEmbedding, view.Section())
	view.selected = providerIndex(domain.AIProviderOllama)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	saved, ok := cmd().(messages.SettingsSaved)
	require.True(t, ok)
	assert.NoError(t, saved.Err)
	svc.AssertExpectations(t)
}

func TestView_LLM_ProviderNeedsAPIKey(t *testing.T) {
	view := loaded(nil)
	view.section = SectionLLM
	view.selected = providerIndex(domain.AIProviderOpenAI)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 1, view.focusedField)
	assert.Contains(t, view.View(), "API Key:")

	view.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, view.focusedField)
}

func TestView_SettingsLoadedError(t *testing.T) {
	view := NewView(nil, nil)

	view.Update(messages.SettingsLoaded{Err: errors.New("config unreadable")})

	assert.Contains(t, view.View(), "config unreadable")
}

func TestView_Reset(t *testing.T) {
	view := loaded(nil)
	enterSensor(t, view)
	view.err = errors.New("stale")

	view.Reset()

	assert.Equal(t, SectionOverview, view.Section())
	assert.Equal(t, 0, view.selected)
	assert.NoError(t, view.Err())
}

func TestCycleStrategy(t *testing.T) {
	assert.Equal(t, domain.StrategyUncertainty, cycleStrategy(domain.StrategyMMR, 1))
	assert.Equal(t, domain.StrategyEnsemble, cycleStrategy(domain.StrategyMMR, -1))
	assert.Equal(t, domain.StrategyMMR, cycleStrategy(domain.StrategyEnsemble, 1))
	assert.Equal(t, domain.StrategyMMR, cycleStrategy(domain.Strategy("bogus"), 1))
}
