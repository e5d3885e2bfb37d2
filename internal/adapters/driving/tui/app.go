// Package tui provides the interactive terminal chat, following the Elm
// architecture on top of Bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/psimdev/atlas-assistant/internal/adapters/driving/tui/styles"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
)

// entry is one rendered line of the transcript.
type entry struct {
	speaker string
	text    string
	isErr   bool
}

// replyMsg carries the assistant's answer back into the update loop.
type replyMsg struct {
	text string
	err  error
}

// App is the chat application model. It implements tea.Model.
type App struct {
	assistant driving.Assistant
	sessionID string
	ctx       context.Context

	styles   *styles.Styles
	input    textinput.Model
	viewport viewport.Model

	transcript []entry
	waiting    bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat application for one session.
func NewApp(assistant driving.Assistant, sessionID string) *App {
	input := textinput.New()
	input.Placeholder = "Escribe un mensaje..."
	input.CharLimit = 2000
	input.Focus()

	return &App{
		assistant: assistant,
		sessionID: sessionID,
		ctx:       context.Background(),
		styles:    styles.NewStyles(styles.DefaultTheme()),
		input:     input,
	}
}

// WithContext sets the context used for assistant calls.
func (a *App) WithContext(ctx context.Context) {
	if ctx != nil {
		a.ctx = ctx
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return a, tea.Quit
		case tea.KeyEnter:
			return a, a.send()
		}

	case replyMsg:
		a.waiting = false
		if msg.err != nil {
			a.append(entry{speaker: "Atlas", text: msg.err.Error(), isErr: true})
		} else {
			a.append(entry{speaker: "Atlas", text: msg.text})
		}
		return a, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Cargando..."
	}

	title := a.styles.Title.Render("Atlas")
	hint := a.styles.Muted.Render("  Enter envía · Ctrl+C sale")
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, hint)

	return fmt.Sprintf("%s\n%s\n%s",
		header,
		a.viewport.View(),
		a.styles.InputBox.Width(a.width-2).Render(a.input.View()),
	)
}

// send dispatches the typed message to the assistant.
func (a *App) send() tea.Cmd {
	message := strings.TrimSpace(a.input.Value())
	if message == "" || a.waiting {
		return nil
	}

	a.input.Reset()
	a.append(entry{speaker: "Tú", text: message})
	a.waiting = true

	ctx := a.ctx
	return func() tea.Msg {
		reply, err := a.assistant.HandleMessage(ctx, a.sessionID, message)
		return replyMsg{text: reply, err: err}
	}
}

func (a *App) append(e entry) {
	a.transcript = append(a.transcript, e)
	if a.ready {
		a.viewport.SetContent(a.renderTranscript())
		a.viewport.GotoBottom()
	}
}

func (a *App) resize() {
	inputHeight := 3
	headerHeight := 1
	vpHeight := a.height - inputHeight - headerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !a.ready {
		a.viewport = viewport.New(a.width, vpHeight)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = vpHeight
	}
	a.input.Width = a.width - 6
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	var b strings.Builder
	wrap := lipgloss.NewStyle().Width(a.width)

	for _, e := range a.transcript {
		label := a.styles.UserLabel
		if e.speaker != "Tú" {
			label = a.styles.AssistantLabel
		}
		body := a.styles.Message
		if e.isErr {
			body = a.styles.Error
		}

		b.WriteString(label.Render(e.speaker + ":"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(body.Render(e.text)))
		b.WriteString("\n\n")
	}

	if a.waiting {
		b.WriteString(a.styles.Muted.Render("Atlas está pensando..."))
		b.WriteString("\n")
	}
	return b.String()
}
