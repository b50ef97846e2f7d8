package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure selection defaults, retrieval sizing and AI providers.

Settings are stored in ~/.refrag/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Set the selection strategy and its parameters",
	Long: `Set the default selection strategy.

Available strategies:
  mmr         - Relevance minus redundancy, weighted by lambda
  uncertainty - Candidates least confidently related to the query
  adaptive    - Uncertainty for homogeneous candidates, MMR otherwise
  ensemble    - MMR and uncertainty rankings fused by rank sum

Without flags the strategy is chosen interactively.`,
	RunE: runSettingsSensor,
}

var settingsRetrievalCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Set how many passages are retrieved and selected",
	RunE:  runSettingsRetrieval,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to embed queries and imported passages.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Configure the LLM provider used by 'refrag ask --generate'.

When no LLM is configured, OPENROUTER_API_KEY (and optionally
OPENROUTER_MODEL) select OpenRouter instead.`,
	RunE: runSettingsLLM,
}

func init() {
	settingsSensorCmd.Flags().StringP("strategy", "s", "", "mmr, uncertainty, adaptive or ensemble")
	settingsSensorCmd.Flags().Float64("lambda", domain.DefaultLambda, "MMR relevance weight in [0, 1]")
	settingsSensorCmd.Flags().Float64("variance-threshold", domain.DefaultVarianceThreshold,
		"adaptive diversity threshold")

	settingsRetrievalCmd.Flags().IntP("top-k", "k", domain.DefaultRetrievalK, "passages retrieved per query")
	settingsRetrievalCmd.Flags().IntP("budget", "b", domain.DefaultRetrievalBudget, "passages selected per query")

	settingsEmbeddingCmd.Flags().Bool("normalize", false, "L2-normalise embeddings")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSensorCmd)
	settingsCmd.AddCommand(settingsRetrievalCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Sensor]")
	cmd.Printf("  Strategy: %s\n", settings.Sensor.Strategy.Description())
	cmd.Printf("  Lambda: %g\n", settings.Sensor.Lambda)
	cmd.Printf("  Variance threshold: %g\n", settings.Sensor.VarianceThreshold)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  K: %d\n", settings.Retrieval.K)
	cmd.Printf("  Budget: %d\n", settings.Retrieval.Budget)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		printAPIKey(cmd, settings.Embedding.APIKey)
	}
	cmd.Printf("  Normalize: %t\n", settings.Embedding.Normalize)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		printAPIKey(cmd, settings.LLM.APIKey)
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	if !settings.Embedding.IsConfigured() {
		cmd.Println("Note: 'refrag ask' and passage import need an embedding provider.")
		cmd.Println("Run 'refrag settings embedding' to configure.")
	}

	return nil
}

func runSettingsSensor(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	sensor := settings.Sensor

	flags := cmd.Flags()
	if !flags.Changed("strategy") && !flags.Changed("lambda") && !flags.Changed("variance-threshold") {
		strategy, err := chooseStrategy(cmd, bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return err
		}
		sensor.Strategy = strategy
	}

	if flags.Changed("strategy") {
		strategy, err := domain.ParseStrategy(flagString(cmd, "strategy"))
		if err != nil {
			return err
		}
		sensor.Strategy = strategy
	}
	if flags.Changed("lambda") {
		sensor.Lambda = flagFloat(cmd, "lambda")
	}
	if flags.Changed("variance-threshold") {
		sensor.VarianceThreshold = flagFloat(cmd, "variance-threshold")
	}

	if err := settingsService.SetSensor(sensor); err != nil {
		return fmt.Errorf("failed to set sensor settings: %w", err)
	}

	cmd.Printf("Strategy set to: %s (lambda %g, variance threshold %g)\n",
		sensor.Strategy.Description(), sensor.Lambda, sensor.VarianceThreshold)
	return nil
}

func chooseStrategy(cmd *cobra.Command, reader *bufio.Reader) (domain.Strategy, error) {
	cmd.Println("Select Strategy")
	cmd.Println("---------------")
	strategies := domain.AllStrategies()
	for i, s := range strategies {
		cmd.Printf("  %d. %s\n", i+1, s.Description())
	}
	cmd.Print("\nEnter choice: ")
	idx := parseChoice(readLine(reader), len(strategies), 0)
	if idx == 0 {
		return "", errors.New("invalid selection")
	}
	return strategies[idx-1], nil
}

func runSettingsRetrieval(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	retrieval := settings.Retrieval

	if cmd.Flags().Changed("top-k") {
		retrieval.K, _ = cmd.Flags().GetInt("top-k") //nolint:errcheck // flag is registered
	}
	if cmd.Flags().Changed("budget") {
		retrieval.Budget, _ = cmd.Flags().GetInt("budget") //nolint:errcheck // flag is registered
	}

	if err := settingsService.SetRetrieval(retrieval); err != nil {
		return fmt.Errorf("failed to set retrieval settings: %w", err)
	}

	cmd.Printf("Retrieval set to: k=%d, budget=%d\n", retrieval.K, retrieval.Budget)
	if retrieval.Budget > retrieval.K {
		cmd.Println("Note: budget exceeds k, every retrieved passage will be selected.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	if cmd.Flags().Changed("normalize") {
		normalize, _ := cmd.Flags().GetBool("normalize") //nolint:errcheck // flag is registered
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings.Embedding.Normalize = normalize
		if err := settingsService.Save(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		cmd.Printf("Embedding normalisation: %t\n", normalize)
	}
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

func printAPIKey(cmd *cobra.Command, key string) {
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
		return
	}
	cmd.Println("  API Key: (not set)")
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
