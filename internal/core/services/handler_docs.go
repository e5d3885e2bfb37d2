package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driving"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Ensure DocsHandler implements the interface.
var _ Handler = (*DocsHandler)(nil)

// DocsHandler searches the documentation wiki and answers questions about
// pages. It keeps the session's last search and selected page so ordinal
// follow-ups ("la opción 2", "esta página") resolve.
type DocsHandler struct {
	wiki      driven.WikiService // nil when the wiki is not configured
	retriever driving.Retriever
	llm       driven.LLMService // optional
	spaces    []string
	topK      int
}

// NewDocsHandler creates the documentation handler. wiki may be nil when
// unconfigured; llm may be nil.
func NewDocsHandler(
	wiki driven.WikiService,
	retriever driving.Retriever,
	llm driven.LLMService,
	spaces []string,
	topK int,
) *DocsHandler {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &DocsHandler{wiki: wiki, retriever: retriever, llm: llm, spaces: spaces, topK: topK}
}

// Domain returns the route this handler owns.
func (h *DocsHandler) Domain() domain.Domain { return domain.DomainDocs }

// ordinalRe matches "la opción 2", "el 3", "la 1", "número 2".
var ordinalRe = regexp.MustCompile(`(?i)\b(?:la\s+opci[oó]n|el|la|n[uú]mero)\s+([0-9]{1,2})\b`)

// spaceKeyRe matches "el espacio DOCS"; space keys are upper case.
var spaceKeyRe = regexp.MustCompile(`(?i:\bespacio)\s+([A-Z][A-Z0-9]{1,14})\b`)

// quotedTitleRe captures a page title in straight or angled quotes.
var quotedTitleRe = regexp.MustCompile(`["«“]([^"»”]+)["»”]`)

// searchPrefixes are stripped from the message to form the search query.
var searchPrefixes = []string{
	"buscar páginas sobre", "busca páginas sobre", "buscar paginas sobre",
	"buscar sobre", "busca sobre", "buscar", "busca",
}

// Handle answers one documentation message.
func (h *DocsHandler) Handle(
	ctx context.Context, sess *domain.Session, message string, _ []domain.DateMention,
) (string, error) {
	if h.wiki == nil {
		return "La wiki de documentación no está configurada. Añade la sección [wiki] a la configuración.", nil
	}

	lower := strings.ToLower(message)

	switch {
	case wantsSpaces(lower):
		return h.listSpaces(ctx)

	case referencesCurrentPage(lower) && sess.CurrentPage != nil:
		return h.answerFromPage(ctx, sess.CurrentPage, message)

	case len(sess.LastSearch) > 0 && ordinalRe.MatchString(lower):
		return h.selectResult(ctx, sess, lower)

	case quotedTitleRe.MatchString(message):
		return h.openByTitle(ctx, sess, message, quotedTitleRe.FindStringSubmatch(message)[1])

	case matchSpaceKey(message) != "":
		return h.browseSpace(ctx, sess, matchSpaceKey(message))

	default:
		return h.search(ctx, sess, message)
	}
}

func matchSpaceKey(message string) string {
	if m := spaceKeyRe.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func wantsSpaces(lower string) bool {
	return strings.Contains(lower, "espacios") &&
		(strings.Contains(lower, "lista") || strings.Contains(lower, "qué") ||
			strings.Contains(lower, "que ") || strings.Contains(lower, "muestra"))
}

func referencesCurrentPage(lower string) bool {
	return strings.Contains(lower, "esta página") || strings.Contains(lower, "esta pagina") ||
		strings.Contains(lower, "esa página") || strings.Contains(lower, "esa pagina") ||
		strings.Contains(lower, "resume") || strings.Contains(lower, "resumen de la página")
}

// listSpaces lists the wiki spaces visible to the user.
func (h *DocsHandler) listSpaces(ctx context.Context) (string, error) {
	spaces, err := h.wiki.Spaces(ctx)
	if err != nil {
		return "", fmt.Errorf("list spaces: %w", err)
	}
	if len(spaces) == 0 {
		return "No tienes acceso a ningún espacio de la wiki.", nil
	}

	var b strings.Builder
	b.WriteString("Espacios disponibles:\n")
	for _, s := range spaces {
		fmt.Fprintf(&b, "- %s: %s\n", s.Key, s.Name)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// search runs a wiki search and remembers the results for ordinal
// follow-ups.
func (h *DocsHandler) search(ctx context.Context, sess *domain.Session, message string) (string, error) {
	query := searchQuery(message)
	if query == "" {
		return "¿Qué quieres buscar en la documentación?", nil
	}

	pages, err := h.wiki.Search(ctx, query, h.spaces)
	if err != nil {
		return "", fmt.Errorf("search wiki for %q: %w", query, err)
	}
	logger.Debug("Wiki search %q: %d results", query, len(pages))

	sess.LastSearch = pages
	if len(pages) == 0 {
		return h.answerFromKnowledge(ctx, message)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "He encontrado %d páginas sobre %q:\n", len(pages), query)
	for i, p := range pages {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Title)
		if p.Excerpt != "" {
			fmt.Fprintf(&b, " — %s", p.Excerpt)
		}
		b.WriteString("\n")
	}
	b.WriteString("Dime el número de la que quieres abrir.")
	return b.String(), nil
}

// selectResult resolves an ordinal reference against the last search.
func (h *DocsHandler) selectResult(ctx context.Context, sess *domain.Session, lower string) (string, error) {
	m := ordinalRe.FindStringSubmatch(lower)
	n, _ := strconv.Atoi(m[1])
	if n < 1 || n > len(sess.LastSearch) {
		return fmt.Sprintf("Solo hay %d resultados; dime un número entre 1 y %d.",
			len(sess.LastSearch), len(sess.LastSearch)), nil
	}

	chosen := sess.LastSearch[n-1]
	page, err := h.wiki.Page(ctx, chosen.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("La página %q ya no existe.", chosen.Title), nil
		}
		return "", fmt.Errorf("fetch page %s: %w", chosen.ID, err)
	}
	sess.CurrentPage = page
	return renderPage(page), nil
}

// browseSpace lists the pages of one space and remembers them for ordinal
// follow-ups.
func (h *DocsHandler) browseSpace(ctx context.Context, sess *domain.Session, key string) (string, error) {
	pages, err := h.wiki.SpaceContent(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("No existe el espacio %s o no tienes acceso.", key), nil
		}
		return "", fmt.Errorf("list space %s: %w", key, err)
	}
	if len(pages) == 0 {
		return fmt.Sprintf("El espacio %s no tiene páginas.", key), nil
	}

	sess.LastSearch = pages
	var b strings.Builder
	fmt.Fprintf(&b, "El espacio %s tiene %d páginas:\n", key, len(pages))
	for i, p := range pages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Title)
	}
	b.WriteString("Dime el número de la que quieres abrir.")
	return b.String(), nil
}

// openByTitle resolves an exact page title. A space named in the message
// narrows the lookup; otherwise the configured spaces are tried in order,
// and when none are configured, every visible space. Unknown titles fall
// back to a regular search.
func (h *DocsHandler) openByTitle(
	ctx context.Context, sess *domain.Session, message, title string,
) (string, error) {
	spaces := h.spaces
	if key := matchSpaceKey(message); key != "" {
		spaces = []string{key}
	}
	if len(spaces) == 0 {
		all, err := h.wiki.Spaces(ctx)
		if err != nil {
			return "", fmt.Errorf("list spaces: %w", err)
		}
		for _, s := range all {
			spaces = append(spaces, s.Key)
		}
	}

	for _, key := range spaces {
		page, err := h.wiki.PageByTitle(ctx, key, title)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("fetch page %q in %s: %w", title, key, err)
		}
		sess.CurrentPage = page
		return renderPage(page), nil
	}
	return h.search(ctx, sess, title)
}

// renderPage shows an opened page: title, location, excerpt.
func renderPage(page *domain.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", page.Title)
	if page.URL != "" {
		fmt.Fprintf(&b, "%s\n", page.URL)
	}
	b.WriteString("\n")
	b.WriteString(excerpt(page.Content, 600))
	b.WriteString("\n\nPuedes pedirme un resumen o preguntarme sobre esta página.")
	return b.String()
}

// answerFromPage answers a question about the selected page.
func (h *DocsHandler) answerFromPage(ctx context.Context, page *domain.Page, message string) (string, error) {
	if h.llm == nil {
		return fmt.Sprintf("%s\n\n%s", page.Title, excerpt(page.Content, 800)), nil
	}

	prompt := fmt.Sprintf(
		"Eres un asistente de documentación. Responde en español usando solo esta página.\n\nTítulo: %s\n\n%s\n\nPregunta: %s",
		page.Title, page.Content, message)
	answer, err := h.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 512})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return strings.TrimSpace(answer), nil
}

// answerFromKnowledge falls back to the local knowledge base when the wiki
// search comes back empty.
func (h *DocsHandler) answerFromKnowledge(ctx context.Context, message string) (string, error) {
	if h.retriever == nil {
		return "No he encontrado páginas sobre eso en la wiki.", nil
	}
	chunks, err := h.retriever.Retrieve(ctx, message, h.topK)
	if err != nil || len(chunks) == 0 {
		if err != nil {
			logger.Warn("Retrieval failed: %v", err)
		}
		return "No he encontrado páginas sobre eso en la wiki.", nil
	}

	if h.llm == nil {
		var b strings.Builder
		b.WriteString("No hay páginas en la wiki, pero la base de conocimiento local dice:\n")
		b.WriteString(strings.TrimSpace(chunks[0].Content))
		return b.String(), nil
	}

	prompt := fmt.Sprintf(
		"Eres un asistente de documentación. Responde en español usando solo este contexto.\n\n%s\nPregunta: %s",
		ContextBlock(chunks), message)
	answer, err := h.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 512})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return strings.TrimSpace(answer), nil
}

// searchQuery strips command phrasings from the message.
func searchQuery(message string) string {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)
	for _, p := range searchPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(strings.Trim(trimmed[len(p):], " ?¿.!"))
		}
	}
	return strings.TrimSpace(strings.Trim(trimmed, " ?¿.!"))
}

// excerpt truncates content for display on a word boundary.
func excerpt(content string, max int) string {
	content = strings.TrimSpace(content)
	if len(content) <= max {
		return content
	}
	cut := content[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
