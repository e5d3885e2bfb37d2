// Package confluence implements the wiki port against the Confluence REST
// API, using basic authentication with an API token.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.WikiService = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 5
	searchLimit              = 10
)

// Config holds configuration for the Confluence client.
type Config struct {
	// BaseURL is the Confluence base URL, e.g. https://wiki.example.com.
	BaseURL string

	// Username is the account email or login.
	Username string

	// Token is the API token used as the basic auth password.
	Token string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond caps the request rate (default: 5).
	RequestsPerSecond float64
}

// Client is the Confluence REST client.
type Client struct {
	client   *http.Client
	limiter  *rate.Limiter
	baseURL  string
	username string
	token    string
}

// NewClient creates a Confluence client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Username == "" {
		return nil, fmt.Errorf("%w: wiki url and username are required", domain.ErrConfiguration)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Client{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		token:    cfg.Token,
	}, nil
}

// Close releases resources.
func (c *Client) Close() error { return nil }

// --- Wire types ---

type spaceBody struct {
	Results []struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description struct {
			Plain struct {
				Value string `json:"value"`
			} `json:"plain"`
		} `json:"description"`
	} `json:"results"`
}

type contentBody struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Excerpt string `json:"excerpt"`
	Links   struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

type contentListBody struct {
	Results []contentBody `json:"results"`
}

// Spaces lists the wiki spaces visible to the configured user.
func (c *Client) Spaces(ctx context.Context) ([]domain.Space, error) {
	var body spaceBody
	if err := c.get(ctx, "/rest/api/space?limit=50&expand=description.plain", &body); err != nil {
		return nil, err
	}

	spaces := make([]domain.Space, len(body.Results))
	for i, raw := range body.Results {
		spaces[i] = domain.Space{
			Key:         raw.Key,
			Name:        raw.Name,
			Description: raw.Description.Plain.Value,
		}
	}
	return spaces, nil
}

// SpaceContent lists the pages in a space.
func (c *Client) SpaceContent(ctx context.Context, spaceKey string) ([]domain.Page, error) {
	path := "/rest/api/content?type=page&limit=50&spaceKey=" + url.QueryEscape(spaceKey)
	var body contentListBody
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	return c.toPages(body.Results), nil
}

// Search finds pages matching a text query via CQL, optionally restricted
// to the given spaces.
func (c *Client) Search(ctx context.Context, query string, spaces []string) ([]domain.Page, error) {
	cql := fmt.Sprintf(`type=page AND text ~ "%s"`, domain.EscapeJQL(query))
	if len(spaces) > 0 {
		quoted := make([]string, len(spaces))
		for i, s := range spaces {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		cql += fmt.Sprintf(" AND space IN (%s)", strings.Join(quoted, ","))
	}

	path := fmt.Sprintf("/rest/api/content/search?limit=%d&cql=%s", searchLimit, url.QueryEscape(cql))
	var body contentListBody
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	return c.toPages(body.Results), nil
}

// Page fetches a page with its content.
func (c *Client) Page(ctx context.Context, id string) (*domain.Page, error) {
	path := "/rest/api/content/" + url.PathEscape(id) + "?expand=body.storage,space"
	var body contentBody
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	page := c.toPage(body)
	return &page, nil
}

// PageByTitle finds a page by exact title within a space.
func (c *Client) PageByTitle(ctx context.Context, spaceKey, title string) (*domain.Page, error) {
	path := fmt.Sprintf("/rest/api/content?type=page&spaceKey=%s&title=%s&expand=body.storage,space",
		url.QueryEscape(spaceKey), url.QueryEscape(title))
	var body contentListBody
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("%w: page %q in space %s", domain.ErrNotFound, title, spaceKey)
	}
	page := c.toPage(body.Results[0])
	return &page, nil
}

// CreatePage creates a page and returns it with its assigned ID and URL.
// The body is plain text; paragraphs become storage-format paragraphs.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, body string) (*domain.Page, error) {
	payload := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": spaceKey},
		"body": map[string]any{
			"storage": map[string]string{
				"value":          toStorageFormat(body),
				"representation": "storage",
			},
		},
	}

	var created contentBody
	if err := c.post(ctx, "/rest/api/content", payload, &created); err != nil {
		return nil, err
	}
	page := c.toPage(created)
	return &page, nil
}

// --- Transport ---

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: wiki request: %v", domain.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: wiki status %d: %s", domain.ErrUpstreamService,
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode wiki response: %v", domain.ErrUpstreamService, err)
	}
	return nil
}

func (c *Client) toPages(raw []contentBody) []domain.Page {
	pages := make([]domain.Page, len(raw))
	for i, r := range raw {
		pages[i] = c.toPage(r)
	}
	return pages
}

func (c *Client) toPage(raw contentBody) domain.Page {
	page := domain.Page{
		ID:       raw.ID,
		SpaceKey: raw.Space.Key,
		Title:    raw.Title,
		Content:  stripStorageMarkup(raw.Body.Storage.Value),
		Excerpt:  stripStorageMarkup(raw.Excerpt),
	}
	if raw.Links.WebUI != "" {
		page.URL = c.baseURL + raw.Links.WebUI
	}
	return page
}

var (
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
	blockEnd = strings.NewReplacer("</p>", "\n", "</h1>", "\n", "</h2>", "\n",
		"</h3>", "\n", "</li>", "\n", "<br/>", "\n", "<br />", "\n")
)

// stripStorageMarkup reduces Confluence storage format to readable text.
func stripStorageMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = blockEnd.Replace(s)
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// toStorageFormat renders plain text as minimal storage-format markup,
// one paragraph per line.
func toStorageFormat(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " ")
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(escapeXML(line))
		b.WriteString("</p>")
	}
	return b.String()
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
