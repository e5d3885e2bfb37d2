package cli

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [mensaje]",
	Short: "Ask a single question and print the reply",
	Long: `Sends one message to the assistant and prints its reply.

Each invocation uses a fresh session unless --session is given, so
follow-up questions can share conversational context:

  atlas ask "¿Cuál es el estado de PSIM-123?"
  atlas ask --session diaria "¿cuántas horas he imputado hoy?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session identifier to continue")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant not configured")
	}

	sessionID := askSession
	if sessionID == "" {
		sessionID = "ask-" + uuid.NewString()
	}

	message := strings.Join(args, " ")
	reply, err := assistantService.HandleMessage(cmd.Context(), sessionID, message)
	if err != nil {
		return err
	}

	cmd.Println(reply)
	return nil
}
