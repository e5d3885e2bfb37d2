package domain

// Space is a wiki space.
type Space struct {
	// Key is the space key, e.g. PSIMDESASW.
	Key string

	// Name is the human-readable name.
	Name string

	// Description is the space description, if any.
	Description string
}

// Page is a wiki page in the shape handlers care about. The wiki's wire
// format is owned by the adapter.
type Page struct {
	// ID is the wiki's page identifier.
	ID string

	// SpaceKey is the containing space.
	SpaceKey string

	// Title is the page title.
	Title string

	// URL is the full web location of the page.
	URL string

	// Content is the page body as plain text, populated only when the page
	// was fetched with content.
	Content string

	// Excerpt is a short relevance snippet from search results.
	Excerpt string
}
