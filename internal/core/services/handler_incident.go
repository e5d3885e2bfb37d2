package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Ensure IncidentHandler implements the interface.
var _ Handler = (*IncidentHandler)(nil)

// IncidentHandler runs the guided incident capture: one question per
// template field, a confirmation step, then a wiki page. A cancelled
// capture leaves no artifact anywhere.
type IncidentHandler struct {
	wiki     driven.WikiService // nil when the wiki is not configured
	space    string
	template []domain.IncidentField
	clock    func() time.Time
}

// IncidentOption configures the incident handler.
type IncidentOption func(*IncidentHandler)

// WithIncidentTemplate overrides the capture template.
func WithIncidentTemplate(template []domain.IncidentField) IncidentOption {
	return func(h *IncidentHandler) { h.template = template }
}

// WithIncidentClock overrides the system clock, for tests.
func WithIncidentClock(clock func() time.Time) IncidentOption {
	return func(h *IncidentHandler) { h.clock = clock }
}

// NewIncidentHandler creates the incident handler. wiki may be nil; the
// confirmed capture is then returned as text instead of published.
func NewIncidentHandler(wiki driven.WikiService, space string, opts ...IncidentOption) *IncidentHandler {
	h := &IncidentHandler{
		wiki:     wiki,
		space:    space,
		template: domain.DefaultIncidentTemplate(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Domain returns the route this handler owns.
func (h *IncidentHandler) Domain() domain.Domain { return domain.DomainIncident }

// Handle drives the capture machine with one user message.
func (h *IncidentHandler) Handle(
	ctx context.Context, sess *domain.Session, message string, _ []domain.DateMention,
) (string, error) {
	if sess.Incident == nil {
		sess.Incident = domain.NewIncidentDraft(h.template, h.clock())
		logger.Info("Incident capture started in session %s", sess.ID)
		return "Vamos a registrar el incidente. Puedes escribir 'cancelar' en cualquier momento.\n\n" +
			sess.Incident.Prompt(), nil
	}

	reply := sess.Incident.Submit(message)

	switch sess.Incident.State {
	case domain.IncidentCancelled:
		// Nothing was stored; drop the draft entirely.
		sess.Incident = nil
		return reply, nil

	case domain.IncidentDone:
		draft := sess.Incident
		sess.Incident = nil
		return h.publish(ctx, draft)

	default:
		return reply, nil
	}
}

// publish renders the confirmed draft and creates the wiki page.
func (h *IncidentHandler) publish(ctx context.Context, draft *domain.IncidentDraft) (string, error) {
	title := incidentTitle(draft)
	body := renderIncidentPage(draft)

	if h.wiki == nil || h.space == "" {
		return "He registrado el incidente, pero la wiki no está configurada, así que te dejo el contenido aquí:\n\n" +
			body, nil
	}

	page, err := h.wiki.CreatePage(ctx, h.space, title, body)
	if err != nil {
		return "", fmt.Errorf("create incident page: %w", err)
	}
	logger.Info("Incident page created: %s", page.ID)

	reply := fmt.Sprintf("Listo, he documentado el incidente en la página %q.", page.Title)
	if page.URL != "" {
		reply += "\n" + page.URL
	}
	return reply, nil
}

// incidentTitle builds the page title from the capture date and type.
func incidentTitle(draft *domain.IncidentDraft) string {
	kind := draft.Values["tipo_incidente"]
	if kind == "" {
		kind = "Incidente"
	}
	return fmt.Sprintf("%s - %s", draft.StartedAt.Format("2006-01-02"), kind)
}

// renderIncidentPage renders the draft as the page body.
func renderIncidentPage(draft *domain.IncidentDraft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fecha del incidente: %s\n\n", draft.StartedAt.Format("2006-01-02"))
	for _, f := range draft.Template {
		if f.Kind == domain.FieldList {
			fmt.Fprintf(&b, "%s:\n", f.Label)
			for _, item := range draft.Lists[f.Key] {
				fmt.Fprintf(&b, "- %s\n", item)
			}
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n\n", f.Label, draft.Values[f.Key])
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
