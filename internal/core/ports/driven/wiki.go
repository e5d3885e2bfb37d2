package driven

import (
	"context"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// WikiService is the capability surface the assistant consumes from the
// documentation wiki. The wire protocol is fully owned by the adapter.
//
// Unreachable or rejecting upstreams wrap domain.ErrUpstreamService.
type WikiService interface {
	// Spaces lists the wiki spaces visible to the configured user.
	Spaces(ctx context.Context) ([]domain.Space, error)

	// SpaceContent lists the pages in a space.
	SpaceContent(ctx context.Context, spaceKey string) ([]domain.Page, error)

	// Search finds pages matching a text query, optionally restricted to
	// the given spaces.
	Search(ctx context.Context, query string, spaces []string) ([]domain.Page, error)

	// Page fetches a page with its content. Unknown IDs wrap
	// domain.ErrNotFound.
	Page(ctx context.Context, id string) (*domain.Page, error)

	// PageByTitle finds a page by exact title within a space.
	PageByTitle(ctx context.Context, spaceKey, title string) (*domain.Page, error)

	// CreatePage creates a page and returns it with its assigned ID and URL.
	CreatePage(ctx context.Context, spaceKey, title, body string) (*domain.Page, error)

	// Close releases resources.
	Close() error
}
