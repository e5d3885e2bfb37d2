package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Issue is a tracker issue in the shape handlers care about. The tracker's
// wire format is owned by the adapter.
type Issue struct {
	// Key is the issue key, e.g. PSIMDESASW-222.
	Key string

	// Summary is the one-line title.
	Summary string

	// Status is the current workflow status name.
	Status string

	// Assignee is the display name of the assignee, empty if unassigned.
	Assignee string

	// Created and Updated are tracker timestamps.
	Created time.Time
	Updated time.Time
}

// Worklog is a time entry on an issue.
type Worklog struct {
	// IssueKey is the issue the time was logged against.
	IssueKey string

	// Author is the display name of who logged it.
	Author string

	// TimeSpent is the human form ("2h 30m").
	TimeSpent string

	// Seconds is the logged duration in seconds.
	Seconds int

	// Started is when the work began.
	Started time.Time

	// Comment is the optional worklog note.
	Comment string
}

// Transition is an available workflow transition for an issue.
type Transition struct {
	ID       string
	Name     string
	ToStatus string
}

// WorkdaySeconds is the expected logged time per day (8 hours).
const WorkdaySeconds = 8 * 60 * 60

// WorklogSummary aggregates a user's worklogs for one calendar date against
// the expected workday.
type WorklogSummary struct {
	// Date is the calendar date summarised.
	Date time.Time

	// TotalSeconds is the time logged across all issues.
	TotalSeconds int

	// MissingSeconds is how far short of the expected workday the total is,
	// never negative.
	MissingSeconds int

	// Complete is true when the expected workday is covered.
	Complete bool

	// Entries are the contributing worklogs grouped by issue.
	Entries []Worklog
}

// NewWorklogSummary builds a summary for date from the given worklogs,
// keeping only entries started on that date.
func NewWorklogSummary(date time.Time, logs []Worklog) WorklogSummary {
	date = Midnight(date)
	s := WorklogSummary{Date: date}
	for _, wl := range logs {
		if !Midnight(wl.Started.Local()).Equal(date) {
			continue
		}
		s.Entries = append(s.Entries, wl)
		s.TotalSeconds += wl.Seconds
	}
	if s.TotalSeconds < WorkdaySeconds {
		s.MissingSeconds = WorkdaySeconds - s.TotalSeconds
	}
	s.Complete = s.TotalSeconds >= WorkdaySeconds
	return s
}

// issueKeyRe matches tracker issue keys like PSIMDESASW-222.
var issueKeyRe = regexp.MustCompile(`\b([A-Z][A-Z0-9]+)-([0-9]+)\b`)

// FindIssueKeys returns all issue keys mentioned in a message, in order.
func FindIssueKeys(text string) []string {
	return issueKeyRe.FindAllString(text, -1)
}

// workDurationRe matches tracker-style duration parts: "2h", "30m", "1d".
var workDurationRe = regexp.MustCompile(`(?i)(\d+)\s*(d|h|m)\b`)

// ParseWorkDuration converts a tracker-style time string ("2h 30m", "45m",
// "1d") to seconds, assuming an 8-hour day. A bare number is read as
// minutes. Returns ErrInvalidInput for unrecognised formats.
func ParseWorkDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty duration", ErrInvalidInput)
	}

	matches := workDurationRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		// A bare number is minutes.
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n * 60, nil
		}
		return 0, fmt.Errorf("%w: unrecognised duration %q", ErrInvalidInput, s)
	}

	total := 0
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: unrecognised duration %q", ErrInvalidInput, s)
		}
		switch strings.ToLower(m[2]) {
		case "d":
			total += n * WorkdaySeconds
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		}
	}
	return total, nil
}

// FormatWorkDuration renders seconds as a tracker-style string ("5h 30m").
func FormatWorkDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatTrackerTime renders a timestamp in the tracker's wire format:
// ISO-8601 with milliseconds and a +0000 offset.
func FormatTrackerTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "+0000"
}

// EscapeJQL escapes quotes and backslashes so a value can be embedded in a
// quoted JQL string safely.
func EscapeJQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return value
}
