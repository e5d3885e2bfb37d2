package driven

import "github.com/psimdev/atlas-assistant/internal/core/domain"

// ConfigStore loads and persists the assistant settings.
type ConfigStore interface {
	// Load reads the settings, applying defaults for missing values. A
	// missing file yields pure defaults, not an error.
	Load() (*domain.Settings, error)

	// Save persists the settings.
	Save(settings *domain.Settings) error

	// Path returns the backing file location, for diagnostics.
	Path() string
}
