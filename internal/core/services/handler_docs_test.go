package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
)

func TestDocsHandler_WikiNotConfigured(t *testing.T) {
	h := NewDocsHandler(nil, nil, nil, nil, 0)

	reply, err := h.Handle(context.Background(), testSession(), "buscar páginas sobre kafka", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "no está configurada")
}

func TestDocsHandler_SearchListsResults(t *testing.T) {
	wiki := &mockWiki{searchHits: []domain.Page{
		{ID: "1", Title: "Arquitectura de microservicios", Excerpt: "visión general"},
		{ID: "2", Title: "Despliegue de microservicios"},
	}}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)
	sess := testSession()

	reply, err := h.Handle(context.Background(), sess, "Buscar páginas sobre microservicios", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "1. Arquitectura de microservicios")
	assert.Contains(t, reply, "2. Despliegue de microservicios")
	assert.Len(t, sess.LastSearch, 2, "results are remembered for ordinal follow-ups")
}

func TestDocsHandler_SearchStripsCommandPhrasing(t *testing.T) {
	assert.Equal(t, "microservicios", searchQuery("Buscar páginas sobre microservicios"))
	assert.Equal(t, "kafka", searchQuery("busca kafka"))
	assert.Equal(t, "despliegue continuo", searchQuery("¿despliegue continuo?"))
}

func TestDocsHandler_OrdinalSelectsPage(t *testing.T) {
	page := &domain.Page{ID: "2", Title: "Despliegue", Content: "Contenido completo de la página.", URL: "https://wiki/2"}
	wiki := &mockWiki{pages: map[string]*domain.Page{"2": page}}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)

	sess := testSession()
	sess.LastSearch = []domain.Page{{ID: "1", Title: "Arquitectura"}, {ID: "2", Title: "Despliegue"}}

	reply, err := h.Handle(context.Background(), sess, "abre la opción 2", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Despliegue")
	assert.Contains(t, reply, "https://wiki/2")
	require.NotNil(t, sess.CurrentPage)
	assert.Equal(t, "2", sess.CurrentPage.ID)
}

func TestDocsHandler_OrdinalOutOfRange(t *testing.T) {
	wiki := &mockWiki{}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)

	sess := testSession()
	sess.LastSearch = []domain.Page{{ID: "1", Title: "Arquitectura"}}

	reply, err := h.Handle(context.Background(), sess, "la opción 5", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "entre 1 y 1")
	assert.Nil(t, sess.CurrentPage)
}

func TestDocsHandler_CurrentPageFollowUp(t *testing.T) {
	wiki := &mockWiki{}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)

	sess := testSession()
	sess.CurrentPage = &domain.Page{ID: "2", Title: "Despliegue", Content: "Pasos del despliegue en producción."}

	reply, err := h.Handle(context.Background(), sess, "resume esta página", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Despliegue")
	assert.Contains(t, reply, "Pasos del despliegue")
}

func TestDocsHandler_ListSpaces(t *testing.T) {
	wiki := &mockWiki{spaces: []domain.Space{
		{Key: "DEV", Name: "Desarrollo"},
		{Key: "OPS", Name: "Operaciones"},
	}}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)

	reply, err := h.Handle(context.Background(), testSession(), "¿qué espacios hay?", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "DEV")
	assert.Contains(t, reply, "Operaciones")
}

func TestDocsHandler_BrowsesSpaceByKey(t *testing.T) {
	wiki := &mockWiki{spacePages: map[string][]domain.Page{
		"OPS": {
			{ID: "10", Title: "Runbook de incidencias"},
			{ID: "11", Title: "Guardias"},
		},
	}}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)
	sess := testSession()

	reply, err := h.Handle(context.Background(), sess, "muestra las páginas del espacio OPS", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"OPS"}, wiki.spaceKeys)
	assert.Contains(t, reply, "1. Runbook de incidencias")
	assert.Contains(t, reply, "2. Guardias")
	assert.Len(t, sess.LastSearch, 2, "pages are remembered for ordinal follow-ups")
}

func TestDocsHandler_BrowseUnknownSpace(t *testing.T) {
	wiki := &mockWiki{spacePages: map[string][]domain.Page{}}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)

	reply, err := h.Handle(context.Background(), testSession(), "¿qué hay en el espacio FOO?", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "No existe el espacio FOO")
}

func TestDocsHandler_OpensPageByExactTitle(t *testing.T) {
	page := &domain.Page{
		ID: "7", SpaceKey: "OPS", Title: "Runbook de incidencias",
		Content: "Pasos ante una incidencia.", URL: "https://wiki/7",
	}
	wiki := &mockWiki{pages: map[string]*domain.Page{"7": page}}
	h := NewDocsHandler(wiki, nil, nil, []string{"OPS"}, 0)
	sess := testSession()

	reply, err := h.Handle(context.Background(), sess, `abre la página "Runbook de incidencias"`, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Runbook de incidencias")
	assert.Contains(t, reply, "https://wiki/7")
	require.NotNil(t, sess.CurrentPage)
	assert.Equal(t, "7", sess.CurrentPage.ID)
}

func TestDocsHandler_UnknownTitleFallsBackToSearch(t *testing.T) {
	wiki := &mockWiki{searchHits: []domain.Page{{ID: "1", Title: "Guía de Kafka"}}}
	h := NewDocsHandler(wiki, nil, nil, []string{"DEV"}, 0)
	sess := testSession()

	reply, err := h.Handle(context.Background(), sess, `abre la página "kafka"`, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "1. Guía de Kafka")
	assert.Nil(t, sess.CurrentPage)
}

func TestDocsHandler_EmptySearchFallsBackToKnowledge(t *testing.T) {
	wiki := &mockWiki{}
	store := &mockIndexStore{
		exists: true,
		results: []domain.ScoredChunk{
			{Content: "Project Foo is the flagship product", Score: 0.9},
		},
	}
	retriever := NewRetrieverService(store, &mockEmbedding{vector: []float32{1}})
	h := NewDocsHandler(wiki, retriever, nil, nil, 0)

	reply, err := h.Handle(context.Background(), testSession(), "buscar Project Foo", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Project Foo is the flagship product")
}

func TestDocsHandler_SearchFaultPropagates(t *testing.T) {
	wiki := &mockWiki{searchErr: domain.ErrUpstreamService}
	h := NewDocsHandler(wiki, nil, nil, nil, 0)

	_, err := h.Handle(context.Background(), testSession(), "buscar kafka", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamService)
}
