package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Ensure IssuesHandler implements the interface.
var _ Handler = (*IssuesHandler)(nil)

// IssuesHandler answers tracker questions: issue status, assigned work,
// worklog summaries, logging time and workflow transitions.
type IssuesHandler struct {
	tracker   driven.IssueTracker // nil when the tracker is not configured
	retriever driving.Retriever
	llm       driven.LLMService // optional
	topK      int
}

// NewIssuesHandler creates the issues handler. tracker may be nil when
// unconfigured; llm may be nil.
func NewIssuesHandler(
	tracker driven.IssueTracker,
	retriever driving.Retriever,
	llm driven.LLMService,
	topK int,
) *IssuesHandler {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &IssuesHandler{tracker: tracker, retriever: retriever, llm: llm, topK: topK}
}

// Domain returns the route this handler owns.
func (h *IssuesHandler) Domain() domain.Domain { return domain.DomainIssues }

// durationRe finds a tracker-style duration anywhere in a message.
var durationRe = regexp.MustCompile(`(?i)\b\d+\s*[dhm](?:\s+\d+\s*[dhm])*\b`)

// Handle answers one tracker message.
func (h *IssuesHandler) Handle(
	ctx context.Context, sess *domain.Session, message string, dates []domain.DateMention,
) (string, error) {
	if h.tracker == nil {
		return "El gestor de tareas no está configurado. Añade la sección [tracker] a la configuración.", nil
	}

	lower := strings.ToLower(message)
	keys := domain.FindIssueKeys(message)

	switch {
	case wantsWorklogSummary(lower):
		return h.worklogSummary(ctx, sess, dates)

	case len(keys) > 0 && wantsLogWork(lower):
		return h.logWork(ctx, keys[0], message, dates)

	case len(keys) > 0 && wantsTransition(lower):
		return h.transitions(ctx, keys[0], lower)

	case len(keys) > 0:
		return h.issueStatus(ctx, keys, message)

	case wantsMyIssues(lower):
		return h.myIssues(ctx)

	default:
		return h.freeform(ctx, sess, message)
	}
}

func wantsWorklogSummary(lower string) bool {
	return strings.Contains(lower, "horas") &&
		(strings.Contains(lower, "imputa") || strings.Contains(lower, "registr") ||
			strings.Contains(lower, "falta") || strings.Contains(lower, "cuánt") ||
			strings.Contains(lower, "cuant"))
}

func wantsLogWork(lower string) bool {
	return strings.Contains(lower, "imputa") || strings.Contains(lower, "registra") ||
		strings.Contains(lower, "añade") || strings.Contains(lower, "log ")
}

func wantsTransition(lower string) bool {
	return strings.Contains(lower, "transici") || strings.Contains(lower, "mueve") ||
		strings.Contains(lower, "pasa a") || strings.Contains(lower, "cambia el estado")
}

func wantsMyIssues(lower string) bool {
	return strings.Contains(lower, "mis tareas") || strings.Contains(lower, "mis issues") ||
		strings.Contains(lower, "asignad") || strings.Contains(lower, "qué tengo") ||
		strings.Contains(lower, "que tengo")
}

// issueStatus reports the state of each mentioned issue.
func (h *IssuesHandler) issueStatus(ctx context.Context, keys []string, message string) (string, error) {
	var b strings.Builder
	for i, key := range keys {
		issue, err := h.tracker.Issue(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintf(&b, "No he encontrado la tarea %s.\n", key)
				continue
			}
			return "", fmt.Errorf("fetch issue %s: %w", key, err)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s\n", issue.Key, issue.Summary)
		fmt.Fprintf(&b, "Estado: %s", issue.Status)
		if issue.Assignee != "" {
			fmt.Fprintf(&b, " · Asignada a: %s", issue.Assignee)
		}
		b.WriteString("\n")
	}
	return h.compose(ctx, message, strings.TrimRight(b.String(), "\n"))
}

// myIssues lists the user's assigned issues.
func (h *IssuesHandler) myIssues(ctx context.Context) (string, error) {
	issues, err := h.tracker.MyIssues(ctx)
	if err != nil {
		return "", fmt.Errorf("list assigned issues: %w", err)
	}
	if len(issues) == 0 {
		return "No tienes tareas asignadas ahora mismo.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tienes %d tareas asignadas:\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s [%s] %s\n", issue.Key, issue.Status, issue.Summary)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// worklogSummary aggregates the user's logged time for the requested date
// (today when none was mentioned) against the expected workday.
func (h *IssuesHandler) worklogSummary(
	ctx context.Context, sess *domain.Session, dates []domain.DateMention,
) (string, error) {
	date := sess.Today
	if len(dates) > 0 {
		date = dates[0].Date
	}

	issues, err := h.tracker.MyIssues(ctx)
	if err != nil {
		return "", fmt.Errorf("list assigned issues: %w", err)
	}

	var all []domain.Worklog
	for _, issue := range issues {
		logs, err := h.tracker.Worklogs(ctx, issue.Key)
		if err != nil {
			return "", fmt.Errorf("worklogs for %s: %w", issue.Key, err)
		}
		all = append(all, logs...)
	}

	summary := domain.NewWorklogSummary(date, all)
	logger.Debug("Worklog summary %s: %d entries, %ds total",
		date.Format("2006-01-02"), len(summary.Entries), summary.TotalSeconds)

	var b strings.Builder
	fmt.Fprintf(&b, "Horas imputadas el %s:\n", domain.FormatHuman(date))
	if len(summary.Entries) == 0 {
		b.WriteString("No hay imputaciones ese día.\n")
	}
	for _, wl := range summary.Entries {
		fmt.Fprintf(&b, "- %s: %s", wl.IssueKey, domain.FormatWorkDuration(wl.Seconds))
		if wl.Comment != "" {
			fmt.Fprintf(&b, " (%s)", wl.Comment)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %s de %s.", domain.FormatWorkDuration(summary.TotalSeconds),
		domain.FormatWorkDuration(domain.WorkdaySeconds))
	if summary.Complete {
		b.WriteString(" La jornada está completa.")
	} else {
		fmt.Fprintf(&b, " Te faltan %s por imputar.", domain.FormatWorkDuration(summary.MissingSeconds))
	}
	return b.String(), nil
}

// logWork records time against an issue.
func (h *IssuesHandler) logWork(
	ctx context.Context, key, message string, dates []domain.DateMention,
) (string, error) {
	raw := durationRe.FindString(message)
	if raw == "" {
		return fmt.Sprintf("¿Cuánto tiempo quieres imputar en %s? Por ejemplo: '2h 30m'.", key), nil
	}
	seconds, err := domain.ParseWorkDuration(raw)
	if err != nil {
		return "", err
	}

	started := worklogStart(dates)
	if err := h.tracker.AddWorklog(ctx, key, domain.FormatWorkDuration(seconds), "", started); err != nil {
		return "", fmt.Errorf("add worklog on %s: %w", key, err)
	}
	return fmt.Sprintf("He imputado %s en %s.", domain.FormatWorkDuration(seconds), key), nil
}

// transitions lists or applies workflow transitions for an issue.
func (h *IssuesHandler) transitions(ctx context.Context, key, lower string) (string, error) {
	available, err := h.tracker.Transitions(ctx, key)
	if err != nil {
		return "", fmt.Errorf("transitions for %s: %w", key, err)
	}
	if len(available) == 0 {
		return fmt.Sprintf("La tarea %s no tiene transiciones disponibles.", key), nil
	}

	// Apply when the message names a transition, list otherwise.
	for _, t := range available {
		if strings.Contains(lower, strings.ToLower(t.Name)) ||
			(t.ToStatus != "" && strings.Contains(lower, strings.ToLower(t.ToStatus))) {
			if err := h.tracker.ApplyTransition(ctx, key, t.ID); err != nil {
				return "", fmt.Errorf("apply transition %s on %s: %w", t.Name, key, err)
			}
			return fmt.Sprintf("He movido %s a %s.", key, t.ToStatus), nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Transiciones disponibles para %s:\n", key)
	for _, t := range available {
		fmt.Fprintf(&b, "- %s (pasa a %s)\n", t.Name, t.ToStatus)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// freeform answers tracker questions that match no structured intent,
// grounding the model on assigned issues and local knowledge.
func (h *IssuesHandler) freeform(ctx context.Context, sess *domain.Session, message string) (string, error) {
	if h.llm == nil {
		return "Puedo consultar el estado de una tarea (por ejemplo PSIMDESASW-222), listar tus tareas asignadas, resumir tus horas imputadas o registrar tiempo.", nil
	}

	issues, err := h.tracker.MyIssues(ctx)
	if err != nil {
		return "", fmt.Errorf("list assigned issues: %w", err)
	}

	var b strings.Builder
	b.WriteString("Eres un asistente del gestor de tareas. Responde en español, breve y concreto.\n\n")
	if block := h.retrievalBlock(ctx, message); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}
	b.WriteString("Tareas asignadas al usuario:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s [%s] %s\n", issue.Key, issue.Status, issue.Summary)
	}

	messages := make([]driven.ChatMessage, 0, 8)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: b.String()})
	messages = append(messages, chatHistory(sess, 6)...)
	messages = append(messages, driven.ChatMessage{Role: "user", Content: message})

	answer, err := h.llm.Chat(ctx, messages, driven.GenerateOptions{MaxTokens: 512})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return strings.TrimSpace(answer), nil
}

// compose optionally rewrites a structured answer with the LLM, keeping
// the structured text as the fallback.
func (h *IssuesHandler) compose(ctx context.Context, question, structured string) (string, error) {
	if structured == "" {
		return "No he encontrado ninguna tarea con ese identificador.", nil
	}
	if h.llm == nil {
		return structured, nil
	}

	prompt := fmt.Sprintf(
		"Eres un asistente del gestor de tareas. Con estos datos:\n%s\n\nResponde en español a: %s",
		structured, question)
	answer, err := h.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 256})
	if err != nil {
		logger.Warn("LLM compose failed: %v (returning structured answer)", err)
		return structured, nil
	}
	return strings.TrimSpace(answer), nil
}

// retrievalBlock fetches local knowledge context, best effort.
func (h *IssuesHandler) retrievalBlock(ctx context.Context, query string) string {
	if h.retriever == nil {
		return ""
	}
	chunks, err := h.retriever.Retrieve(ctx, query, h.topK)
	if err != nil {
		logger.Warn("Retrieval failed: %v (answering without local context)", err)
		return ""
	}
	return ContextBlock(chunks)
}

// worklogStart picks the worklog start: the mentioned date, or zero for
// the adapter to default to now.
func worklogStart(dates []domain.DateMention) time.Time {
	if len(dates) > 0 {
		return dates[0].Date
	}
	return time.Time{}
}
