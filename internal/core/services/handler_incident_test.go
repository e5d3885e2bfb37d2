package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

// runCapture feeds a scripted conversation through the incident handler.
func runCapture(t *testing.T, h *IncidentHandler, sess *domain.Session, answers []string) string {
	t.Helper()
	reply, err := h.Handle(context.Background(), sess, "quiero registrar un incidente", nil)
	require.NoError(t, err)
	for _, a := range answers {
		reply, err = h.Handle(context.Background(), sess, a, nil)
		require.NoError(t, err)
	}
	return reply
}

// fullCaptureAnswers walks every field of the default template.
var fullCaptureAnswers = []string{
	"Caída del servicio de informes", // tipo
	"Alto",                           // impacto
	"Alta",                           // prioridad
	"Resuelto",                       // estado actual
	"UNTM",                           // unidad de negocio
	"Ana Pérez",                      // soporte
	"listo",                          // fin de la lista
	"El servicio dejó de responder tras el despliegue.", // descripción
	"2025-04-25 - Rollback - Ana",                       // acción
	"",                                                  // fin de la lista
	"hoy",                                               // fecha resolución
	"Revisar el pipeline de despliegue.",                // observaciones
}

func TestIncidentHandler_FullCapturePublishesPage(t *testing.T) {
	wiki := &mockWiki{}
	h := NewIncidentHandler(wiki, "INC", WithIncidentClock(fixedClock))
	sess := testSession()

	reply := runCapture(t, h, sess, fullCaptureAnswers)
	assert.Contains(t, reply, "correcta toda la información", "confirmation question before publishing")

	reply, err := h.Handle(context.Background(), sess, "sí", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "documentado")
	assert.Nil(t, sess.Incident)

	require.Len(t, wiki.created, 1)
	page := wiki.created[0]
	assert.Equal(t, "INC", page.space)
	assert.Contains(t, page.title, "2025-04-25")
	assert.Contains(t, page.title, "Caída del servicio de informes")
	assert.Contains(t, page.body, "Impacto: Alto")
	assert.Contains(t, page.body, "- Ana Pérez")
	assert.Contains(t, page.body, "Fecha de resolución: 2025-04-25")
}

func TestIncidentHandler_CancelLeavesNoArtifact(t *testing.T) {
	wiki := &mockWiki{}
	h := NewIncidentHandler(wiki, "INC", WithIncidentClock(fixedClock))
	sess := testSession()

	reply := runCapture(t, h, sess, []string{"Caída parcial", "cancelar"})
	assert.Contains(t, reply, "cancelado")
	assert.Nil(t, sess.Incident)
	assert.Empty(t, wiki.created)
}

func TestIncidentHandler_InvalidChoiceReasks(t *testing.T) {
	h := NewIncidentHandler(&mockWiki{}, "INC", WithIncidentClock(fixedClock))
	sess := testSession()

	reply := runCapture(t, h, sess, []string{"Caída", "gigantesco"})
	assert.Contains(t, reply, "Opción no válida")
	assert.Equal(t, domain.IncidentCollecting, sess.Incident.State)

	reply, err := h.Handle(context.Background(), sess, "alto", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Prioridad", "case-insensitive match advances to the next field")
}

func TestIncidentHandler_EmptyListRequiresOneEntry(t *testing.T) {
	h := NewIncidentHandler(&mockWiki{}, "INC", WithIncidentClock(fixedClock))
	sess := testSession()

	reply := runCapture(t, h, sess, []string{
		"Caída", "Alto", "Alta", "Resuelto", "UNTM", "listo",
	})
	assert.Contains(t, reply, "al menos un elemento")
	assert.Equal(t, domain.IncidentCollecting, sess.Incident.State)
}

func TestIncidentHandler_RejectConfirmationRestarts(t *testing.T) {
	wiki := &mockWiki{}
	h := NewIncidentHandler(wiki, "INC", WithIncidentClock(fixedClock))
	sess := testSession()

	runCapture(t, h, sess, fullCaptureAnswers)

	reply, err := h.Handle(context.Background(), sess, "no", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Empecemos de nuevo")
	assert.Equal(t, domain.IncidentCollecting, sess.Incident.State)
	assert.Empty(t, wiki.created)
}

func TestIncidentHandler_NoWikiReturnsContent(t *testing.T) {
	h := NewIncidentHandler(nil, "", WithIncidentClock(fixedClock))
	sess := testSession()

	runCapture(t, h, sess, fullCaptureAnswers)
	reply, err := h.Handle(context.Background(), sess, "sí", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "wiki no está configurada")
	assert.Contains(t, reply, "Impacto: Alto")
}
