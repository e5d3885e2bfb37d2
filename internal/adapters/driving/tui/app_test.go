package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

type stubAssistant struct {
	reply    string
	err      error
	messages []string
	sessions []string
}

func (s *stubAssistant) HandleMessage(_ context.Context, sessionID, message string) (string, error) {
	s.sessions = append(s.sessions, sessionID)
	s.messages = append(s.messages, message)
	return s.reply, s.err
}

func (s *stubAssistant) Session(sessionID string) *domain.Session {
	return domain.NewSession(sessionID)
}

func (s *stubAssistant) EndSession(_ string) {}

func newReadyApp(assistant *stubAssistant) *App {
	app := NewApp(assistant, "chat-test")
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return app
}

func TestApp_NotReadyBeforeFirstResize(t *testing.T) {
	app := NewApp(&stubAssistant{}, "chat-test")
	assert.Contains(t, app.View(), "Cargando")
}

func TestApp_ResizeMakesReady(t *testing.T) {
	app := newReadyApp(&stubAssistant{})
	view := app.View()
	assert.Contains(t, view, "Atlas")
	assert.NotContains(t, view, "Cargando")
}

func TestApp_EnterSendsTypedMessage(t *testing.T) {
	assistant := &stubAssistant{reply: "Hola, soy Atlas."}
	app := newReadyApp(assistant)

	app.input.SetValue("hola")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// The command performs the assistant call.
	msg := cmd()
	reply, ok := msg.(replyMsg)
	require.True(t, ok)
	assert.Equal(t, "Hola, soy Atlas.", reply.text)
	assert.Equal(t, []string{"hola"}, assistant.messages)
	assert.Equal(t, []string{"chat-test"}, assistant.sessions)

	// While waiting, the transcript shows the user turn and the indicator.
	view := app.View()
	assert.Contains(t, view, "hola")
	assert.Contains(t, view, "pensando")

	app.Update(msg)
	view = app.View()
	assert.Contains(t, view, "Hola, soy Atlas.")
	assert.NotContains(t, view, "pensando")
}

func TestApp_EmptyMessageNotSent(t *testing.T) {
	assistant := &stubAssistant{}
	app := newReadyApp(assistant)

	app.input.SetValue("   ")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, assistant.messages)
}

func TestApp_SecondSendWaitsForReply(t *testing.T) {
	assistant := &stubAssistant{reply: "ok"}
	app := newReadyApp(assistant)

	app.input.SetValue("primero")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	app.input.SetValue("segundo")
	_, cmd2 := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd2, "must not send while a reply is pending")
}

func TestApp_ErrorRendersInTranscript(t *testing.T) {
	assistant := &stubAssistant{err: errors.New("session id required")}
	app := newReadyApp(assistant)

	app.input.SetValue("hola")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Contains(t, app.View(), "session id required")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newReadyApp(&stubAssistant{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_TranscriptAccumulates(t *testing.T) {
	assistant := &stubAssistant{reply: "respuesta"}
	app := newReadyApp(assistant)

	for _, m := range []string{"uno", "dos"} {
		app.input.SetValue(m)
		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		app.Update(cmd())
	}

	view := app.View()
	assert.Contains(t, view, "uno")
	assert.Contains(t, view, "dos")
	assert.Equal(t, 2, strings.Count(view, "respuesta"))
}
