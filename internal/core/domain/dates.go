package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The assistant's users write in Spanish, and the upstream tracker and wiki
// store Spanish month and weekday names, so the mapping is kept here rather
// than relying on locale support.

// spanishMonths maps lowercase month names to their number.
var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// spanishMonthNames is the reverse mapping, for formatting.
var spanishMonthNames = [...]string{
	time.January:   "enero",
	time.February:  "febrero",
	time.March:     "marzo",
	time.April:     "abril",
	time.May:       "mayo",
	time.June:      "junio",
	time.July:      "julio",
	time.August:    "agosto",
	time.September: "septiembre",
	time.October:   "octubre",
	time.November:  "noviembre",
	time.December:  "diciembre",
}

// spanishWeekdays maps time.Weekday to its Spanish name.
var spanishWeekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
}

// DateRules configures which phrasings resolve to dates. The defaults cover
// common Spanish usage; deployments add project-specific phrasings through
// configuration rather than code.
type DateRules struct {
	// RelativeDays maps a lowercase word to a day offset from today
	// ("ayer" -> -1). Relative references resolve silently.
	RelativeDays map[string]int
}

// DefaultDateRules returns the built-in Spanish phrasing rules.
func DefaultDateRules() DateRules {
	return DateRules{
		RelativeDays: map[string]int{
			"hoy":        0,
			"ayer":       -1,
			"anteayer":   -2,
			"antier":     -2,
			"mañana":     1,
			"manana":     1,
			"yesterday":  -1,
			"today":      0,
			"tomorrow":   1,
		},
	}
}

// DateMention is a date expression extracted from a user message, resolved
// against a reference "today".
type DateMention struct {
	// Raw is the matched text.
	Raw string

	// Date is the resolved calendar date (midnight, local).
	Date time.Time

	// Explicit is true for literal calendar dates ("3 de noviembre de 2023",
	// "03/11/2023") as opposed to relative words ("ayer").
	Explicit bool

	// HasYear is true when the user spelled out the year.
	HasYear bool
}

// ConflictsWith reports whether this mention contradicts the resolved today:
// an explicit date in a different year, or in a different month when the
// year was left implicit. Relative references never conflict; they are
// computed from today in the first place.
func (m DateMention) ConflictsWith(today time.Time) bool {
	if !m.Explicit {
		return false
	}
	if m.HasYear && m.Date.Year() != today.Year() {
		return true
	}
	if !m.HasYear && m.Date.Month() != today.Month() {
		return true
	}
	return false
}

var (
	// "3 de noviembre de 2023" or "3 de noviembre"
	longDateRe = regexp.MustCompile(`(?i)\b([0-9]{1,2})\s+de\s+([a-záéíóúñ]+)(?:\s+de(?:l)?\s+([0-9]{4}))?\b`)

	// "03/11/2023", "3-11-2023", "03.11.2023"
	numericDateRe = regexp.MustCompile(`\b([0-9]{1,2})[/.\-]([0-9]{1,2})[/.\-]([0-9]{4})\b`)

	// "2023-11-03"
	isoDateRe = regexp.MustCompile(`\b([0-9]{4})-([0-9]{2})-([0-9]{2})\b`)

	wordRe = regexp.MustCompile(`[\p{L}]+`)
)

// ExtractDates finds all date expressions in a message and resolves them
// against today using the given rules.
func ExtractDates(text string, today time.Time, rules DateRules) []DateMention {
	var mentions []DateMention
	lower := strings.ToLower(text)
	today = Midnight(today)

	for _, w := range wordRe.FindAllString(lower, -1) {
		if offset, ok := rules.RelativeDays[w]; ok {
			mentions = append(mentions, DateMention{
				Raw:      w,
				Date:     today.AddDate(0, 0, offset),
				Explicit: false,
			})
		}
	}

	for _, m := range longDateRe.FindAllStringSubmatch(lower, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		month, ok := spanishMonths[m[2]]
		if !ok {
			continue
		}
		year := today.Year()
		hasYear := m[3] != ""
		if hasYear {
			year, _ = strconv.Atoi(m[3])
		}
		mentions = append(mentions, DateMention{
			Raw:      strings.TrimSpace(m[0]),
			Date:     time.Date(year, month, day, 0, 0, 0, 0, today.Location()),
			Explicit: true,
			HasYear:  hasYear,
		})
	}

	for _, m := range numericDateRe.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			continue
		}
		mentions = append(mentions, DateMention{
			Raw:      m[0],
			Date:     time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location()),
			Explicit: true,
			HasYear:  true,
		})
	}

	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			continue
		}
		mentions = append(mentions, DateMention{
			Raw:      m[0],
			Date:     time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location()),
			Explicit: true,
			HasYear:  true,
		})
	}

	return mentions
}

// Midnight truncates a time to its calendar date in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatHuman renders a date the way the assistant speaks it:
// "martes, 3 de noviembre de 2023".
func FormatHuman(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonthNames[t.Month()], t.Year())
}
