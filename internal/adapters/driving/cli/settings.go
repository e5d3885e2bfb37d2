package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/psimdev/atlas-assistant/internal/adapters/driven/tracker/jira"
	"github.com/psimdev/atlas-assistant/internal/adapters/driven/wiki/confluence"
	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the knowledge directory, the issue tracker, the
documentation wiki and the AI providers.

Use subcommands to show the current values or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	settings, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", configStore.Path())
	cmd.Println()

	cmd.Println("[Knowledge Index]")
	cmd.Printf("  Documents dir: %s\n", orUnset(settings.Index.KnowledgeDir))
	cmd.Printf("  Data dir: %s\n", orDefault(settings.Index.DataDir, "~/.atlas/data"))
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Index.ChunkSize, settings.Index.ChunkOverlap)
	cmd.Printf("  Top-K: %d\n", settings.Index.TopK)
	cmd.Println()

	cmd.Println("[Tracker]")
	cmd.Printf("  URL: %s\n", orUnset(settings.Tracker.URL))
	cmd.Printf("  Username: %s\n", orUnset(settings.Tracker.Username))
	cmd.Printf("  Token: %s\n", envStatus(settings.Tracker.TokenEnv))
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Tracker.IsConfigured()))
	cmd.Println()

	cmd.Println("[Wiki]")
	cmd.Printf("  URL: %s\n", orUnset(settings.Wiki.URL))
	cmd.Printf("  Username: %s\n", orUnset(settings.Wiki.Username))
	cmd.Printf("  Token: %s\n", envStatus(settings.Wiki.TokenEnv))
	if len(settings.Wiki.Spaces) > 0 {
		cmd.Printf("  Spaces: %s\n", strings.Join(settings.Wiki.Spaces, ", "))
	}
	cmd.Printf("  Incident space: %s\n", orUnset(settings.Wiki.IncidentSpace))
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Wiki.IsConfigured()))
	cmd.Println()

	cmd.Println("[AI]")
	cmd.Printf("  Embedding provider: %s", settings.AI.EmbeddingProvider)
	if settings.AI.EmbeddingModel != "" {
		cmd.Printf(" (%s)", settings.AI.EmbeddingModel)
	}
	cmd.Println()
	if settings.AI.LLMProvider == "" {
		cmd.Println("  LLM provider: (disabled, keyword routing only)")
	} else {
		cmd.Printf("  LLM provider: %s", settings.AI.LLMProvider)
		if settings.AI.LLMModel != "" {
			cmd.Printf(" (%s)", settings.AI.LLMModel)
		}
		cmd.Println()
		cmd.Printf("  API key: %s\n", envStatus(settings.AI.APIKeyEnv))
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	settings, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Atlas Setup Wizard")
	cmd.Println("==================")
	cmd.Println()

	wizardIndex(cmd, reader, settings)
	wizardTracker(cmd, reader, settings)
	wizardWiki(cmd, reader, settings)
	wizardAI(cmd, reader, settings)

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := configStore.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("Settings saved to %s\n", configStore.Path())
	return nil
}

func wizardIndex(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) {
	cmd.Println("[Knowledge Index]")
	cmd.Printf("Documents directory [%s]: ", orUnset(settings.Index.KnowledgeDir))
	if input := readLine(reader); input != "" {
		settings.Index.KnowledgeDir = input
	}
	cmd.Println()
}

func wizardTracker(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) {
	cmd.Println("[Tracker]")
	cmd.Printf("Tracker URL [%s]: ", orUnset(settings.Tracker.URL))
	if input := readLine(reader); input != "" {
		settings.Tracker.URL = input
	}
	cmd.Printf("Username [%s]: ", orUnset(settings.Tracker.Username))
	if input := readLine(reader); input != "" {
		settings.Tracker.Username = input
	}

	if !settings.Tracker.IsConfigured() {
		cmd.Println()
		return
	}

	cmd.Printf("The API token is read from $%s at startup.\n", settings.Tracker.TokenEnv)
	cmd.Print("Paste a token now to test the connection (empty to skip): ")
	if token := readPassword(cmd, reader); token != "" {
		cmd.Print("Checking tracker connection... ")
		if err := checkTracker(settings.Tracker, token); err != nil {
			cmd.Printf("FAILED: %v\n", err)
		} else {
			cmd.Println("OK")
		}
	}
	cmd.Println()
}

func wizardWiki(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) {
	cmd.Println("[Wiki]")
	cmd.Printf("Wiki URL [%s]: ", orUnset(settings.Wiki.URL))
	if input := readLine(reader); input != "" {
		settings.Wiki.URL = input
	}
	cmd.Printf("Username [%s]: ", orUnset(settings.Wiki.Username))
	if input := readLine(reader); input != "" {
		settings.Wiki.Username = input
	}
	cmd.Printf("Search spaces, comma separated [%s]: ", strings.Join(settings.Wiki.Spaces, ","))
	if input := readLine(reader); input != "" {
		settings.Wiki.Spaces = splitCSV(input)
	}
	cmd.Printf("Incident space [%s]: ", orUnset(settings.Wiki.IncidentSpace))
	if input := readLine(reader); input != "" {
		settings.Wiki.IncidentSpace = input
	}

	if !settings.Wiki.IsConfigured() {
		cmd.Println()
		return
	}

	cmd.Printf("The API token is read from $%s at startup.\n", settings.Wiki.TokenEnv)
	cmd.Print("Paste a token now to test the connection (empty to skip): ")
	if token := readPassword(cmd, reader); token != "" {
		cmd.Print("Checking wiki connection... ")
		if err := checkWiki(settings.Wiki, token); err != nil {
			cmd.Printf("FAILED: %v\n", err)
		} else {
			cmd.Println("OK")
		}
	}
	cmd.Println()
}

func wizardAI(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) {
	cmd.Println("[AI]")
	cmd.Println("Embedding provider:")
	cmd.Println("  1. local  (built-in, no setup required)")
	cmd.Println("  2. ollama")
	cmd.Println("  3. openai")
	cmd.Print("Choice [1]: ")
	switch parseChoice(readLine(reader), 3, 1) {
	case 2:
		settings.AI.EmbeddingProvider = domain.AIProviderOllama
	case 3:
		settings.AI.EmbeddingProvider = domain.AIProviderOpenAI
	default:
		settings.AI.EmbeddingProvider = domain.AIProviderLocal
	}

	cmd.Println("LLM provider:")
	cmd.Println("  1. none   (keyword routing, structured replies)")
	cmd.Println("  2. ollama")
	cmd.Println("  3. openai")
	cmd.Print("Choice [1]: ")
	switch parseChoice(readLine(reader), 3, 1) {
	case 2:
		settings.AI.LLMProvider = domain.AIProviderOllama
	case 3:
		settings.AI.LLMProvider = domain.AIProviderOpenAI
	default:
		settings.AI.LLMProvider = ""
	}

	if settings.AI.LLMProvider != "" {
		cmd.Printf("LLM model [%s]: ", orDefault(settings.AI.LLMModel, "provider default"))
		if input := readLine(reader); input != "" {
			settings.AI.LLMModel = input
		}
	}
	cmd.Println()
}

// checkTracker validates tracker credentials with a short-lived client.
// The token is used for the check only, never persisted.
func checkTracker(cfg domain.TrackerSettings, token string) error {
	client, err := jira.NewClient(jira.Config{
		BaseURL:  cfg.URL,
		Username: cfg.Username,
		Token:    token,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = client.MyIssues(ctx)
	return err
}

func checkWiki(cfg domain.WikiSettings, token string) error {
	client, err := confluence.NewClient(confluence.Config{
		BaseURL:  cfg.URL,
		Username: cfg.Username,
		Token:    token,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = client.Spaces(ctx)
	return err
}

// Helper functions.

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

// readPassword reads a secret without echo when stdin is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orUnset(value string) string {
	return orDefault(value, "(not set)")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// envStatus reports whether the named environment variable carries a value,
// without ever printing the value itself.
func envStatus(envName string) string {
	if envName == "" {
		return "(not set)"
	}
	if os.Getenv(envName) != "" {
		return fmt.Sprintf("$%s (set)", envName)
	}
	return fmt.Sprintf("$%s (empty)", envName)
}

func configuredStatus(configured bool) string {
	if configured {
		return "configured"
	}
	return "not configured"
}
