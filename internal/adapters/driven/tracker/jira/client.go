// Package jira implements the issue tracker port against the Jira REST
// API (v2), using basic authentication with an API token.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.IssueTracker = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond keeps the client well under the server's
	// throttling threshold.
	DefaultRequestsPerSecond = 5
)

// trackerTimeLayout is the wire format for timestamps.
const trackerTimeLayout = "2006-01-02T15:04:05.000-0700"

// Config holds configuration for the Jira client.
type Config struct {
	// BaseURL is the Jira base URL, e.g. https://jira.example.com.
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

// Client is the Jira REST client.
type Client struct {
	client   *http.Client
	limiter  *rate.Limiter
	baseURL  string
	username string
	token    string
}

// NewClient creates a Jira client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Username == "" {
		return nil, fmt.Errorf("%w: tracker url and username are required", domain.ErrConfiguration)
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

type issueFields struct {
	Summary string `json:"summary"`
	Status  struct {
		Name string `json:"name"`
	} `json:"status"`
	Assignee *struct {
		DisplayName string `json:"displayName"`
	} `json:"assignee"`
	Created string `json:"created"`
	Updated string `json:"updated"`
}

type issueBody struct {
	Key    string      `json:"key"`
	Fields issueFields `json:"fields"`
}

type searchBody struct {
	Issues []issueBody `json:"issues"`
}

type worklogEntry struct {
	Author struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	TimeSpent        string `json:"timeSpent"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	Started          string `json:"started"`
	Comment          string `json:"comment"`
}

type worklogBody struct {
	Worklogs []worklogEntry `json:"worklogs"`
}

type transitionBody struct {
	Transitions []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		To   struct {
			Name string `json:"name"`
		} `json:"to"`
	} `json:"transitions"`
}

// MyIssues returns the issues assigned to the configured user, most
// recently updated first.
func (c *Client) MyIssues(ctx context.Context) ([]domain.Issue, error) {
	jql := "assignee = currentUser() AND resolution = Unresolved ORDER BY updated DESC"
	path := "/rest/api/2/search?jql=" + url.QueryEscape(jql) + "&maxResults=50"

	var body searchBody
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}

	issues := make([]domain.Issue, len(body.Issues))
	for i, raw := range body.Issues {
		issues[i] = toIssue(raw)
	}
	return issues, nil
}

// Issue fetches one issue by key.
func (c *Client) Issue(ctx context.Context, key string) (*domain.Issue, error) {
	var body issueBody
	if err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key), &body); err != nil {
		return nil, err
	}
	issue := toIssue(body)
	return &issue, nil
}

// Worklogs returns the time entries logged on an issue.
func (c *Client) Worklogs(ctx context.Context, key string) ([]domain.Worklog, error) {
	var body worklogBody
	if err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/worklog", &body); err != nil {
		return nil, err
	}

	logs := make([]domain.Worklog, len(body.Worklogs))
	for i, raw := range body.Worklogs {
		logs[i] = domain.Worklog{
			IssueKey:  key,
			Author:    raw.Author.DisplayName,
			TimeSpent: raw.TimeSpent,
			Seconds:   raw.TimeSpentSeconds,
			Started:   parseTrackerTime(raw.Started),
			Comment:   raw.Comment,
		}
	}
	return logs, nil
}

// AddWorklog records time against an issue. started defaults to now when
// zero.
func (c *Client) AddWorklog(ctx context.Context, key, timeSpent, comment string, started time.Time) error {
	if started.IsZero() {
		started = time.Now()
	}
	payload := map[string]string{
		"timeSpent": timeSpent,
		"started":   domain.FormatTrackerTime(started),
	}
	if comment != "" {
		payload["comment"] = comment
	}
	return c.post(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/worklog", payload, nil)
}

// Transitions lists the workflow transitions available for an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]domain.Transition, error) {
	var body transitionBody
	if err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/transitions", &body); err != nil {
		return nil, err
	}

	transitions := make([]domain.Transition, len(body.Transitions))
	for i, raw := range body.Transitions {
		transitions[i] = domain.Transition{ID: raw.ID, Name: raw.Name, ToStatus: raw.To.Name}
	}
	return transitions, nil
}

// ApplyTransition moves an issue through a workflow transition.
func (c *Client) ApplyTransition(ctx context.Context, key, transitionID string) error {
	payload := map[string]any{
		"transition": map[string]string{"id": transitionID},
	}
	return c.post(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/transitions", payload, nil)
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
		return fmt.Errorf("%w: tracker request: %v", domain.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: tracker status %d: %s", domain.ErrUpstreamService,
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode tracker response: %v", domain.ErrUpstreamService, err)
	}
	return nil
}

// toIssue maps a wire issue to the domain shape.
func toIssue(raw issueBody) domain.Issue {
	issue := domain.Issue{
		Key:     raw.Key,
		Summary: raw.Fields.Summary,
		Status:  raw.Fields.Status.Name,
		Created: parseTrackerTime(raw.Fields.Created),
		Updated: parseTrackerTime(raw.Fields.Updated),
	}
	if raw.Fields.Assignee != nil {
		issue.Assignee = raw.Fields.Assignee.DisplayName
	}
	return issue
}

// parseTrackerTime parses the tracker's timestamp format, zero on failure.
func parseTrackerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(trackerTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
