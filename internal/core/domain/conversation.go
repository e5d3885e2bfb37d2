package domain

import "time"

// Speaker identifies who produced a conversation turn.
type Speaker string

// Conversation speakers.
const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	// Speaker is who said it.
	Speaker Speaker

	// Text is the message content.
	Text string

	// Domain is the handler that produced an assistant turn, empty for
	// user turns.
	Domain Domain

	// At is when the turn was recorded.
	At time.Time
}

// Domain identifies a specialised handler.
type Domain string

// Available handler domains.
const (
	// DomainNone means no handler owns the session yet.
	DomainNone Domain = ""

	// DomainIssues routes to the issue tracker handler.
	DomainIssues Domain = "issues"

	// DomainDocs routes to the documentation search handler.
	DomainDocs Domain = "docs"

	// DomainIncident routes to the guided incident capture handler.
	DomainIncident Domain = "incident"
)

// IsValid returns true if the domain is a known handler.
func (d Domain) IsValid() bool {
	switch d {
	case DomainIssues, DomainDocs, DomainIncident:
		return true
	default:
		return false
	}
}

// SessionState is the orchestrator's per-session routing state.
type SessionState string

// Session states.
const (
	// StateIdle means no handler owns the current turn.
	StateIdle SessionState = "idle"

	// StateRouted means a handler owns the current turn.
	StateRouted SessionState = "routed"

	// StateAwaitingConfirmation means the orchestrator asked the user a
	// question (date disambiguation, incident confirmation) and the next
	// message answers it before any handler runs.
	StateAwaitingConfirmation SessionState = "awaiting_confirmation"
)

// DefaultHistoryWindow is the number of turns kept per session; older turns
// are evicted.
const DefaultHistoryWindow = 40

// Session is the conversation-scoped shared context. One instance exists per
// conversation; it is mutated only by the orchestrator and read by handlers.
// It is destroyed when the host stops feeding messages.
type Session struct {
	// ID identifies the session.
	ID string

	// History is the ordered record of turns, bounded by HistoryWindow.
	History []Turn

	// HistoryWindow is the maximum number of turns retained.
	HistoryWindow int

	// State is the current routing state.
	State SessionState

	// ActiveDomain is the handler that owns the conversation, if any.
	ActiveDomain Domain

	// Today is the calendar date resolved from the system clock at the start
	// of the current turn. Always an explicit date, never free text.
	Today time.Time

	// PendingDate is set while a date disambiguation question is open: the
	// explicit date the user mentioned that conflicts with Today.
	PendingDate *DateMention

	// PendingMessage is the user message held back while a disambiguation
	// question is open; it is dispatched once the user confirms.
	PendingMessage string

	// Incident is the in-progress guided capture, if the incident handler
	// owns the session.
	Incident *IncidentDraft

	// CurrentPage is the wiki page the user most recently selected, so
	// follow-ups like "esta página" resolve.
	CurrentPage *Page

	// LastSearch holds the most recent wiki search results so ordinal
	// references ("la opción 2") resolve.
	LastSearch []Page
}

// NewSession creates a session with default bounds.
func NewSession(id string) *Session {
	return &Session{
		ID:            id,
		HistoryWindow: DefaultHistoryWindow,
		State:         StateIdle,
	}
}

// AddTurn appends a turn and evicts the oldest past the window.
func (s *Session) AddTurn(t Turn) {
	s.History = append(s.History, t)
	window := s.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(s.History) > window {
		s.History = s.History[len(s.History)-window:]
	}
}

// AwaitingDateConfirmation reports whether a date disambiguation question
// is open.
func (s *Session) AwaitingDateConfirmation() bool {
	return s.State == StateAwaitingConfirmation && s.PendingDate != nil
}
