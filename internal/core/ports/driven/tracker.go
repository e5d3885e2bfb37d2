package driven

import (
	"context"
	"time"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// IssueTracker is the capability surface the assistant consumes from the
// issue tracker. The wire protocol is fully owned by the adapter.
//
// Unreachable or rejecting upstreams wrap domain.ErrUpstreamService.
type IssueTracker interface {
	// MyIssues returns the issues assigned to the configured user, most
	// recently updated first.
	MyIssues(ctx context.Context) ([]domain.Issue, error)

	// Issue fetches one issue by key. Unknown keys wrap domain.ErrNotFound.
	Issue(ctx context.Context, key string) (*domain.Issue, error)

	// Worklogs returns the time entries logged on an issue.
	Worklogs(ctx context.Context, key string) ([]domain.Worklog, error)

	// AddWorklog records time against an issue. timeSpent is tracker
	// format ("2h 30m"); started defaults to now when zero.
	AddWorklog(ctx context.Context, key, timeSpent, comment string, started time.Time) error

	// Transitions lists the workflow transitions available for an issue.
	Transitions(ctx context.Context, key string) ([]domain.Transition, error)

	// ApplyTransition moves an issue through a workflow transition.
	ApplyTransition(ctx context.Context, key, transitionID string) error

	// Close releases resources.
	Close() error
}
