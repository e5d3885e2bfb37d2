// Package cli provides the cobra command tree for the atlas binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// verbose enables debug logging for all commands.
var verbose bool

// Services injected by the composition root before Execute.
var (
	assistantService driving.Assistant
	indexerService   driving.Indexer
	retrieverService driving.Retriever
	configStore      driven.ConfigStore
	indexStore       driven.IndexStore
)

// Services aggregates everything the commands need.
type Services struct {
	Assistant   driving.Assistant
	Indexer     driving.Indexer
	Retriever   driving.Retriever
	ConfigStore driven.ConfigStore
	IndexStore  driven.IndexStore
}

// SetServices wires the command tree to the application services.
func SetServices(s Services) {
	assistantService = s.Assistant
	indexerService = s.Indexer
	retrieverService = s.Retriever
	configStore = s.ConfigStore
	indexStore = s.IndexStore
}

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Conversational assistant for the PSIM team",
	Long: `Atlas is a conversational assistant that answers in Spanish and knows
about your issue tracker, your documentation wiki and a local knowledge
base of markdown notes.

Run without arguments to start an interactive chat session.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	RunE: runChat,
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
