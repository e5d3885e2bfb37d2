package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.Assistant = (*AssistantService)(nil)

// Handler is a specialised domain handler. Handlers read the session's
// shared context freely but only the orchestrator mutates routing state.
type Handler interface {
	// Domain returns the route this handler owns.
	Domain() domain.Domain

	// Handle answers one user message. dates are the resolved date
	// mentions from the message, conflicts already settled by the
	// orchestrator.
	Handle(ctx context.Context, sess *domain.Session, message string, dates []domain.DateMention) (string, error)
}

// rememberPrefixes mark a message as new knowledge to store and index
// rather than a question to answer.
var rememberPrefixes = []string{
	"recuerda esto:", "recuerda que", "recuerda:", "remember this:",
}

// AssistantService is the orchestrator: it owns sessions, resolves dates,
// routes messages to handlers and turns faults into polite replies.
//
// Messages within one session run strictly sequentially; sessions are
// independent.
type AssistantService struct {
	classifier *Classifier
	handlers   map[domain.Domain]Handler
	indexer    driving.Indexer
	knowledge  driven.KnowledgeSource // optional, enables "recuerda esto"
	rules      domain.DateRules
	clock      func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// sessionEntry serialises message handling per session.
type sessionEntry struct {
	mu   sync.Mutex
	sess *domain.Session
}

// AssistantOption configures the orchestrator.
type AssistantOption func(*AssistantService)

// WithClock overrides the system clock, for tests.
func WithClock(clock func() time.Time) AssistantOption {
	return func(a *AssistantService) { a.clock = clock }
}

// WithKnowledgeSource enables storing new knowledge from chat.
func WithKnowledgeSource(source driven.KnowledgeSource) AssistantOption {
	return func(a *AssistantService) { a.knowledge = source }
}

// WithDateRules overrides the date phrasing rules.
func WithDateRules(rules domain.DateRules) AssistantOption {
	return func(a *AssistantService) { a.rules = rules }
}

// NewAssistantService creates the orchestrator with the given handlers.
func NewAssistantService(
	classifier *Classifier,
	indexer driving.Indexer,
	handlers []Handler,
	opts ...AssistantOption,
) *AssistantService {
	a := &AssistantService{
		classifier: classifier,
		handlers:   make(map[domain.Domain]Handler, len(handlers)),
		indexer:    indexer,
		rules:      domain.DefaultDateRules(),
		clock:      time.Now,
		sessions:   make(map[string]*sessionEntry),
	}
	for _, h := range handlers {
		a.handlers[h.Domain()] = h
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session returns the shared context for a session, creating it on first
// use.
func (a *AssistantService) Session(sessionID string) *domain.Session {
	return a.entry(sessionID).sess
}

// EndSession drops a session's shared context.
func (a *AssistantService) EndSession(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

func (a *AssistantService) entry(sessionID string) *sessionEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.sessions[sessionID]
	if !ok {
		e = &sessionEntry{sess: domain.NewSession(sessionID)}
		a.sessions[sessionID] = e
	}
	return e
}

// HandleMessage processes one user message and returns the reply. Upstream
// faults never escape as errors; they become apologetic reply text. The
// error return is reserved for programming errors.
func (a *AssistantService) HandleMessage(ctx context.Context, sessionID, message string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("%w: empty session id", domain.ErrInvalidInput)
	}

	e := a.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.sess
	firstMessage := len(sess.History) == 0
	sess.Today = domain.Midnight(a.clock())
	sess.AddTurn(domain.Turn{Speaker: domain.SpeakerUser, Text: message, At: a.clock()})

	// Session start is the staleness gate: rebuild once if the knowledge
	// changed, degrade to no-retrieval mode if the rebuild fails.
	if firstMessage && a.indexer != nil {
		if err := a.indexer.BuildIfStale(ctx, false); err != nil {
			logger.Warn("Index rebuild at session start failed: %v (continuing without retrieval)", err)
		}
	}

	reply := a.respond(ctx, sess, message)
	sess.AddTurn(domain.Turn{
		Speaker: domain.SpeakerAssistant,
		Text:    reply,
		Domain:  sess.ActiveDomain,
		At:      a.clock(),
	})
	return reply, nil
}

// respond runs the routing state machine for one message.
func (a *AssistantService) respond(ctx context.Context, sess *domain.Session, message string) string {
	logger.Section("Message Routing")
	logger.Debug("Session %s, state=%s, domain=%s", sess.ID, sess.State, sess.ActiveDomain)

	// An open date question owns the turn.
	if sess.AwaitingDateConfirmation() {
		return a.resolveDateConfirmation(ctx, sess, message)
	}

	// New knowledge is stored and indexed, not routed.
	if text, ok := rememberedText(message); ok {
		return a.remember(ctx, text)
	}

	// An in-flight incident capture is sticky until it finishes.
	if sess.Incident != nil && (sess.Incident.State == domain.IncidentCollecting ||
		sess.Incident.State == domain.IncidentConfirming) {
		return a.dispatch(ctx, sess, domain.DomainIncident, message, nil)
	}

	route := a.classifier.Classify(ctx, message, sess.ActiveDomain)
	logger.Info("Routed to %s", route)

	dates := domain.ExtractDates(message, sess.Today, a.rules)
	for _, m := range dates {
		if m.ConflictsWith(sess.Today) {
			sess.State = domain.StateAwaitingConfirmation
			pending := m
			sess.PendingDate = &pending
			sess.PendingMessage = message
			sess.ActiveDomain = route
			logger.Info("Date conflict: mentioned %s, today is %s",
				m.Date.Format("2006-01-02"), sess.Today.Format("2006-01-02"))
			return fmt.Sprintf(
				"Mencionaste la fecha %s, pero hoy es %s. ¿Quieres que use la fecha que mencionaste? (sí / no)",
				domain.FormatHuman(m.Date), domain.FormatHuman(sess.Today))
		}
	}

	return a.dispatch(ctx, sess, route, message, dates)
}

// resolveDateConfirmation answers an open date question and dispatches the
// held-back message.
func (a *AssistantService) resolveDateConfirmation(ctx context.Context, sess *domain.Session, answer string) string {
	pending := *sess.PendingDate
	message := sess.PendingMessage

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "sí", "si", "yes", "correcto", "exacto":
		sess.PendingDate = nil
		sess.PendingMessage = ""
		sess.State = domain.StateRouted
		return a.dispatch(ctx, sess, sess.ActiveDomain, message, []domain.DateMention{pending})

	case "no":
		// The user meant a nearby date: re-anchor the implicit parts to
		// today and continue.
		resolved := pending
		resolved.Date = time.Date(sess.Today.Year(), sess.Today.Month(), pending.Date.Day(),
			0, 0, 0, 0, sess.Today.Location())
		sess.PendingDate = nil
		sess.PendingMessage = ""
		sess.State = domain.StateRouted
		return a.dispatch(ctx, sess, sess.ActiveDomain, message, []domain.DateMention{resolved})

	default:
		return fmt.Sprintf(
			"Solo necesito confirmar la fecha: ¿uso %s? Responde 'sí' o 'no'.",
			domain.FormatHuman(pending.Date))
	}
}

// dispatch hands the message to a handler and converts faults to replies.
func (a *AssistantService) dispatch(
	ctx context.Context, sess *domain.Session, route domain.Domain,
	message string, dates []domain.DateMention,
) string {
	h, ok := a.handlers[route]
	if !ok {
		logger.Warn("No handler for domain %s", route)
		return "Lo siento, no puedo ayudarte con eso todavía."
	}

	sess.ActiveDomain = route
	sess.State = domain.StateRouted

	reply, err := h.Handle(ctx, sess, message, dates)
	if err != nil {
		return a.faultReply(route, err)
	}

	// A finished capture releases the session.
	if route == domain.DomainIncident && sess.Incident == nil {
		sess.ActiveDomain = domain.DomainNone
		sess.State = domain.StateIdle
	}
	return reply
}

// remember stores new knowledge and forces a rebuild so the very next
// question can retrieve it.
func (a *AssistantService) remember(ctx context.Context, text string) string {
	if a.knowledge == nil || a.indexer == nil {
		return "Lo siento, no tengo una base de conocimiento donde guardar eso."
	}

	id, err := a.knowledge.Add(ctx, text)
	if err != nil {
		logger.Warn("Storing knowledge failed: %v", err)
		return "Lo siento, no he podido guardar esa información. Inténtalo de nuevo."
	}
	logger.Info("Stored knowledge document %s", id)

	if err := a.indexer.BuildIfStale(ctx, true); err != nil {
		logger.Warn("Reindex after store failed: %v", err)
		return "He guardado la información, pero no he podido actualizar el índice todavía."
	}
	return "Entendido, he guardado esa información y ya forma parte de mi conocimiento."
}

// faultReply maps an error to the apologetic reply the user sees. The
// cause is logged, never shown.
func (a *AssistantService) faultReply(route domain.Domain, err error) string {
	logger.Error("Handler %s failed: %v", route, err)

	switch {
	case errors.Is(err, domain.ErrUpstreamService):
		return "Lo siento, el servicio externo no está respondiendo en este momento. Inténtalo de nuevo en unos minutos."
	case errors.Is(err, domain.ErrNotFound):
		return "No he encontrado lo que buscas. Revisa el identificador e inténtalo de nuevo."
	case errors.Is(err, domain.ErrInvalidInput):
		return fmt.Sprintf("No he entendido la petición: %v", errors.Unwrap(err))
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "Lo siento, el modelo de lenguaje no está disponible en este momento."
	default:
		return "Lo siento, ha ocurrido un error inesperado al procesar tu mensaje."
	}
}

// chatHistory converts the last n completed turns into chat messages,
// oldest first. The in-flight user turn is excluded; callers append the
// current question themselves.
func chatHistory(sess *domain.Session, n int) []driven.ChatMessage {
	turns := sess.History
	if len(turns) > 0 && turns[len(turns)-1].Speaker == domain.SpeakerUser {
		turns = turns[:len(turns)-1]
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	messages := make([]driven.ChatMessage, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Speaker == domain.SpeakerAssistant {
			role = "assistant"
		}
		messages = append(messages, driven.ChatMessage{Role: role, Content: t.Text})
	}
	return messages
}

// rememberedText extracts the knowledge payload from a remember-style
// message.
func rememberedText(message string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)
	for _, p := range rememberPrefixes {
		if strings.HasPrefix(lower, p) {
			text := strings.TrimSpace(strings.TrimPrefix(trimmed[len(p):], ":"))
			if text == "" {
				return "", false
			}
			return text, true
		}
	}
	return "", false
}
