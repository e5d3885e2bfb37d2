package domain

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind is the input type of an incident template field.
type FieldKind string

// Incident field kinds.
const (
	// FieldText is a single free-text value.
	FieldText FieldKind = "text"

	// FieldMultiline is a longer free-text value.
	FieldMultiline FieldKind = "multiline"

	// FieldChoice must be one of the field's Options.
	FieldChoice FieldKind = "choice"

	// FieldList accumulates entries until the user sends an empty message
	// or "listo"; at least one entry is required.
	FieldList FieldKind = "list"

	// FieldDate accepts "hoy" or a DD/MM/YYYY date.
	FieldDate FieldKind = "date"
)

// IncidentField is one step of the guided capture template.
type IncidentField struct {
	// Key is the stable field name used in the rendered page.
	Key string

	// Label is the human-readable name.
	Label string

	// Question is what the assistant asks for this field.
	Question string

	// FollowUp is asked after each list entry, for FieldList.
	FollowUp string

	// Kind determines validation.
	Kind FieldKind

	// Options are the allowed values for FieldChoice.
	Options []string
}

// DefaultIncidentTemplate is the major-incident capture template.
func DefaultIncidentTemplate() []IncidentField {
	return []IncidentField{
		{Key: "tipo_incidente", Label: "Tipo de incidente", Question: "¿Cuál es el tipo de incidente?", Kind: FieldText},
		{Key: "impacto", Label: "Impacto", Question: "¿Cuál fue el impacto?", Kind: FieldChoice, Options: []string{"Alto", "Medio", "Bajo"}},
		{Key: "prioridad", Label: "Prioridad", Question: "¿Prioridad?", Kind: FieldChoice, Options: []string{"Alta", "Media", "Baja"}},
		{Key: "estado_actual", Label: "Estado actual", Question: "¿Cuál es el estado actual?", Kind: FieldChoice, Options: []string{"Pendiente", "En Progreso", "Resuelto"}},
		{Key: "unidad_negocio", Label: "Unidad de negocio", Question: "¿Cuál fue la unidad de negocio afectada?", Kind: FieldChoice, Options: []string{"CROSS UNIDADES", "UNTM", "UNAONTEC", "PLACAS - SMT"}},
		{Key: "usuarios_soporte", Label: "Usuarios de soporte", Question: "¿Quién participó del soporte?", FollowUp: "¿Alguien más participó en el soporte? (envía vacío o 'listo' para terminar)", Kind: FieldList},
		{Key: "descripcion_problema", Label: "Descripción del problema", Question: "Cuéntame la descripción del problema.", Kind: FieldMultiline},
		{Key: "acciones_realizadas", Label: "Acciones realizadas", Question: "¿Cuál fue la acción realizada? (Fecha - Detalle - Responsable)", FollowUp: "¿Se realizó alguna otra acción? (envía vacío o 'listo' para terminar)", Kind: FieldList},
		{Key: "fecha_resolucion", Label: "Fecha de resolución", Question: "¿Cuándo se resolvió? (puedes escribir 'hoy' o DD/MM/YYYY)", Kind: FieldDate},
		{Key: "observaciones", Label: "Observaciones", Question: "¿Alguna observación adicional?", Kind: FieldMultiline},
	}
}

// IncidentState is the guided capture machine state.
type IncidentState string

// Incident capture states.
const (
	// IncidentCollecting means the draft is gathering field values.
	IncidentCollecting IncidentState = "collecting"

	// IncidentConfirming means all fields are present and a confirmation
	// question is open.
	IncidentConfirming IncidentState = "confirming"

	// IncidentDone means the draft was confirmed.
	IncidentDone IncidentState = "done"

	// IncidentCancelled means the user aborted; no artifact is produced.
	IncidentCancelled IncidentState = "cancelled"
)

// IncidentDraft is an in-progress guided incident capture. It is a small
// state machine: Collecting(fieldIndex) -> Confirming -> Done or Cancelled.
type IncidentDraft struct {
	// Template is the ordered field list.
	Template []IncidentField

	// FieldIndex is the field currently being collected.
	FieldIndex int

	// State is the machine state.
	State IncidentState

	// Values holds collected scalar answers by field key.
	Values map[string]string

	// Lists holds collected list answers by field key.
	Lists map[string][]string

	// StartedAt is when the capture began; used as the incident date.
	StartedAt time.Time
}

// NewIncidentDraft starts a capture with the given template.
func NewIncidentDraft(template []IncidentField, now time.Time) *IncidentDraft {
	return &IncidentDraft{
		Template:  template,
		State:     IncidentCollecting,
		Values:    make(map[string]string),
		Lists:     make(map[string][]string),
		StartedAt: now,
	}
}

// cancelWords abort the capture from any non-terminal state.
var cancelWords = map[string]bool{
	"cancelar": true,
	"cancela":  true,
	"cancel":   true,
	"salir":    true,
}

// listDoneWords end a list field, alongside the empty message.
var listDoneWords = map[string]bool{
	"listo":    true,
	"terminar": true,
	"no":       true,
	"nadie":    true,
	"ninguna":  true,
	"ninguno":  true,
}

// IsCancel reports whether a message aborts the capture.
func IsCancel(text string) bool {
	return cancelWords[strings.ToLower(strings.TrimSpace(text))]
}

// CurrentField returns the field being collected. Only valid while
// State == IncidentCollecting.
func (d *IncidentDraft) CurrentField() IncidentField {
	return d.Template[d.FieldIndex]
}

// Prompt returns the question for the current machine state.
func (d *IncidentDraft) Prompt() string {
	switch d.State {
	case IncidentCollecting:
		f := d.CurrentField()
		if f.Kind == FieldList && len(d.Lists[f.Key]) > 0 && f.FollowUp != "" {
			return f.FollowUp
		}
		if f.Kind == FieldChoice {
			return f.Question + " (" + strings.Join(f.Options, " / ") + ")"
		}
		return f.Question
	case IncidentConfirming:
		return d.Summary() + "\n\n¿Es correcta toda la información? (sí / no / cancelar)"
	default:
		return ""
	}
}

// Submit feeds one user message into the machine and returns the next
// prompt. Invalid input keeps the machine in place with a correction
// message. Cancel words move to IncidentCancelled from any state.
func (d *IncidentDraft) Submit(input string) string {
	input = strings.TrimSpace(input)

	if d.State == IncidentDone || d.State == IncidentCancelled {
		return ""
	}

	if IsCancel(input) {
		d.State = IncidentCancelled
		return "De acuerdo, he cancelado el registro del incidente. No se ha guardado nada."
	}

	if d.State == IncidentConfirming {
		switch strings.ToLower(input) {
		case "sí", "si", "confirmar", "confirmo", "yes":
			d.State = IncidentDone
			return ""
		case "no", "corregir":
			// Start over, keeping nothing, as the original flow does.
			d.FieldIndex = 0
			d.Values = make(map[string]string)
			d.Lists = make(map[string][]string)
			d.State = IncidentCollecting
			return "Empecemos de nuevo. " + d.Prompt()
		default:
			return "Responde 'sí' para confirmar, 'no' para corregir o 'cancelar' para abortar."
		}
	}

	field := d.CurrentField()
	switch field.Kind {
	case FieldList:
		if input == "" || listDoneWords[strings.ToLower(input)] {
			if len(d.Lists[field.Key]) == 0 {
				return "Debes agregar al menos un elemento. " + field.Question
			}
			return d.advance()
		}
		d.Lists[field.Key] = append(d.Lists[field.Key], input)
		if field.FollowUp != "" {
			return field.FollowUp
		}
		return d.advance()

	case FieldChoice:
		for _, opt := range field.Options {
			if strings.EqualFold(input, opt) {
				d.Values[field.Key] = opt
				return d.advance()
			}
		}
		return fmt.Sprintf("Opción no válida. Elige una de: %s.", strings.Join(field.Options, ", "))

	case FieldDate:
		if input == "" {
			return "Por favor, ingresa la fecha solicitada. " + field.Question
		}
		d.Values[field.Key] = ParseFlexibleDate(input, d.StartedAt)
		return d.advance()

	default: // FieldText, FieldMultiline
		if input == "" {
			return "Por favor, ingresa la información solicitada. " + field.Question
		}
		d.Values[field.Key] = input
		return d.advance()
	}
}

// advance moves to the next field or to confirmation.
func (d *IncidentDraft) advance() string {
	d.FieldIndex++
	if d.FieldIndex >= len(d.Template) {
		d.State = IncidentConfirming
	}
	return d.Prompt()
}

// Summary renders the collected data for the confirmation step.
func (d *IncidentDraft) Summary() string {
	var b strings.Builder
	b.WriteString("Resumen de la información recopilada:\n")
	fmt.Fprintf(&b, "- Fecha del incidente: %s\n", d.StartedAt.Format("2006-01-02"))
	for _, f := range d.Template {
		if f.Kind == FieldList {
			fmt.Fprintf(&b, "- %s:\n", f.Label)
			for i, item := range d.Lists[f.Key] {
				fmt.Fprintf(&b, "    %d. %s\n", i+1, item)
			}
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Label, d.Values[f.Key])
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseFlexibleDate parses "hoy" or common numeric forms to YYYY-MM-DD.
// Unparseable input is returned unchanged, as the original capture flow
// stores what the user wrote rather than blocking.
func ParseFlexibleDate(text string, today time.Time) string {
	if strings.EqualFold(strings.TrimSpace(text), "hoy") {
		return Midnight(today).Format("2006-01-02")
	}
	for _, layout := range []string{"02/01/2006", "02-01-2006", "02.01.2006", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(text)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return text
}
