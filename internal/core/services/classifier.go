package services

import (
	"context"
	"strings"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Default keyword routes for the deterministic fallback. Configuration
// extends these lists, it does not replace them.
var (
	defaultIssueWords = []string{
		"jira", "issue", "tarea", "tareas", "ticket", "worklog",
		"imputar", "imputa", "horas", "transición", "transiciones",
		"asignado", "asignada", "sprint",
	}

	defaultDocWords = []string{
		"confluence", "wiki", "documentación", "documentacion",
		"página", "páginas", "pagina", "paginas", "espacio", "espacios",
		"buscar", "busca",
	}

	defaultIncidentWords = []string{
		"incidente", "registrar incidente", "documentar incidente",
	}
)

// Classifier decides which handler a message belongs to. It prefers an LLM
// verdict when one is configured and falls back to keyword rules; when both
// are unsure it keeps the active domain, and defaults to issues on a cold
// session.
type Classifier struct {
	llm driven.LLMService // optional

	issueWords    []string
	docWords      []string
	incidentWords []string
}

// NewClassifier creates a classifier. llm may be nil.
func NewClassifier(llm driven.LLMService, routing domain.RoutingSettings) *Classifier {
	return &Classifier{
		llm:           llm,
		issueWords:    append(append([]string{}, defaultIssueWords...), routing.IssueWords...),
		docWords:      append(append([]string{}, defaultDocWords...), routing.DocWords...),
		incidentWords: append(append([]string{}, defaultIncidentWords...), routing.IncidentWords...),
	}
}

// classifyPrompt instructs the model to answer with a single route name.
const classifyPrompt = `Eres un enrutador de intenciones. Clasifica el mensaje del usuario en exactamente una de estas categorías y responde solo con la palabra:

issues: consultas o acciones sobre tareas del gestor de incidencias (estado, worklogs, imputación de horas, transiciones)
docs: búsqueda o lectura de documentación en la wiki corporativa
incident: el usuario quiere registrar o documentar un incidente mayor paso a paso
unsure: ninguna de las anteriores

Mensaje: %q
Respuesta:`

// Classify routes one message. active is the handler that currently owns
// the session, DomainNone on a cold session.
func (c *Classifier) Classify(ctx context.Context, message string, active domain.Domain) domain.Domain {
	// An issue key is the strongest possible signal.
	if len(domain.FindIssueKeys(message)) > 0 {
		return domain.DomainIssues
	}

	if c.llm != nil {
		if d, ok := c.classifyLLM(ctx, message); ok {
			return d
		}
	}

	if d, ok := c.classifyKeywords(message); ok {
		return d
	}

	// Unsure: a follow-up stays with whoever owns the conversation.
	if active.IsValid() {
		return active
	}
	return domain.DomainIssues
}

// classifyLLM asks the model for a verdict. Any failure or unparseable
// answer reports not-ok so the keyword rules take over.
func (c *Classifier) classifyLLM(ctx context.Context, message string) (domain.Domain, bool) {
	prompt := strings.Replace(classifyPrompt, "%q", "\""+message+"\"", 1)
	answer, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 8, Temperature: 0})
	if err != nil {
		logger.Warn("LLM classification failed: %v (falling back to keywords)", err)
		return domain.DomainNone, false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "issues":
		return domain.DomainIssues, true
	case "docs":
		return domain.DomainDocs, true
	case "incident":
		return domain.DomainIncident, true
	default:
		logger.Debug("LLM classification unsure: %q", answer)
		return domain.DomainNone, false
	}
}

// classifyKeywords scores the message against each route's word list and
// picks the highest. Incident wins ties: starting a capture is an explicit
// act and its words rarely appear by accident.
func (c *Classifier) classifyKeywords(message string) (domain.Domain, bool) {
	lower := strings.ToLower(message)

	incident := countMatches(lower, c.incidentWords)
	issues := countMatches(lower, c.issueWords)
	docs := countMatches(lower, c.docWords)

	switch {
	case incident > 0 && incident >= issues && incident >= docs:
		return domain.DomainIncident, true
	case issues > docs:
		return domain.DomainIssues, true
	case docs > issues:
		return domain.DomainDocs, true
	case issues > 0:
		return domain.DomainIssues, true
	default:
		return domain.DomainNone, false
	}
}

func countMatches(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}
