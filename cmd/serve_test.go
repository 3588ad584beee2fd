package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovatis-mc/emendas-cli/internal/model"
	"github.com/innovatis-mc/emendas-cli/internal/reconcile"
	"github.com/innovatis-mc/emendas-cli/pkg/auth"
)

type fakeSource struct{}

func (fakeSource) Summary(context.Context) (model.Summary, error) {
	return model.Summary{
		TotalOpportunities: 3,
		YearsCovered:       []int{2024, 2025},
		UniqueUFs:          []string{"SP", "RJ"},
		UniquePartidos:     []string{"ABC", "XYZ"},
		AllMinistries: []model.Ministry{
			{Ministry: "Ministério da Saúde", Count: 2, HasRelationship: true},
			{Ministry: "Ministério da Educação", Count: 1},
		},
	}, nil
}

func (fakeSource) Opportunities(context.Context) ([]model.Opportunity, error) {
	return []model.Opportunity{
		{IdentificacaoEmenda: "2024-1001-0001", Ano: 2024, OrgaoOrcamentario: "Ministério da Saúde", UFFavorecida: "SP", Partido: "ABC", ResultadoPrimario: "6", ModalidadeDeAplicacao: "99", DotacaoAtual: 2_000_000},
		{IdentificacaoEmenda: "2024-1001-0002", Ano: 2024, OrgaoOrcamentario: "Ministério da Saúde", UFFavorecida: "RJ", Partido: "XYZ", ResultadoPrimario: "6", ModalidadeDeAplicacao: "99", DotacaoAtual: 1_000_000},
		{IdentificacaoEmenda: "2025-2002-0001", Ano: 2025, OrgaoOrcamentario: "Ministério da Educação", UFFavorecida: "SP", Partido: "ABC", ResultadoPrimario: "7", ModalidadeDeAplicacao: "90", DotacaoAtual: 3_000_000},
	}, nil
}

func (fakeSource) Search(_ context.Context, q reconcile.SearchQuery) ([]model.Opportunity, error) {
	return []model.Opportunity{
		{IdentificacaoEmenda: "2024-1001-0001", Ano: 2024, OrgaoOrcamentario: "Ministério da Saúde", UFFavorecida: "SP", Partido: "ABC", ResultadoPrimario: "6", ModalidadeDeAplicacao: "99", DotacaoAtual: 2_000_000},
	}, nil
}

func newTestRouter(t *testing.T, authClient auth.Client) http.Handler {
	t.Helper()
	rec := reconcile.New(fakeSource{}, reconcile.WithDelays(0, 0))
	require.NoError(t, rec.Init(context.Background()))
	return newRouter(rec, authClient, nil)
}

func getView(t *testing.T, router http.Handler, target string) dashboardView {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var view dashboardView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	return view
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestDashboard_InitialView(t *testing.T) {
	router := newTestRouter(t, nil)

	view := getView(t, router, "/api/dashboard")

	assert.Equal(t, "browsing", view.Mode)
	assert.Equal(t, 3, view.Total)
	assert.Len(t, view.Data, 3)
	assert.Equal(t, 3, view.Stats.Count)
	assert.Equal(t, 1, view.PageCount)
}

func TestDashboard_SortAndPaginate(t *testing.T) {
	router := newTestRouter(t, nil)

	view := getView(t, router, "/api/dashboard?sort_by=dotacao_atual&sort_order=desc&page=1&page_size=2")

	require.Len(t, view.Data, 2)
	assert.Equal(t, "2025-2002-0001", view.Data[0].IdentificacaoEmenda)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 2, view.PageCount)

	view = getView(t, router, "/api/dashboard?sort_by=dotacao_atual&sort_order=desc&page=2&page_size=2")
	require.Len(t, view.Data, 1)
	assert.Equal(t, "2024-1001-0002", view.Data[0].IdentificacaoEmenda)
}

func TestDashboard_FilterUpdate(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(filtersRequest{
		Ministries:  []string{"Ministério da Saúde"},
		Years:       []int{2024, 2025},
		RP:          model.DefaultRP,
		Modalidades: model.DefaultModalidades,
		UFs:         []string{"SP", "RJ"},
		Partidos:    []string{"ABC", "XYZ"},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/dashboard/filters", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var view dashboardView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 2, view.Stats.Count)
}

func TestDashboard_FilterUpdate_BadBody(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/dashboard/filters", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDashboard_SearchLifecycle(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]string{"term": "saude"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/dashboard/search", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code)

	view := getView(t, router, "/api/dashboard")
	assert.Equal(t, "searching", view.Mode)
	assert.Equal(t, "saude", view.SearchTerm)
	assert.Equal(t, 1, view.Total)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/dashboard/search", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	view = getView(t, router, "/api/dashboard")
	assert.Equal(t, "browsing", view.Mode)
	assert.Equal(t, 3, view.Total)
}

func TestDashboard_OnlyRelated(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]bool{"enabled": true})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/dashboard/only-related", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var view dashboardView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	// Only the health ministry carries a relationship, so its two records
	// survive.
	assert.Equal(t, 2, view.Total)
}

func TestDashboard_Refresh(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/dashboard/refresh", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var view dashboardView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, 3, view.Total)
}

func TestExportEndpoint_CSV(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]any{"format": "csv"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/export", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "emendas_parlamentares")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\uFEFF"))
}

func TestExportEndpoint_JSONMetadata(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]any{"format": "json", "max_records": 2})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/export", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".json")

	var envelope struct {
		Metadata struct {
			TotalRegistros int `json:"total_registros"`
			TotalOriginal  int `json:"total_original"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	// total_original reflects the displayed dataset, not the truncated export.
	assert.Equal(t, 2, envelope.Metadata.TotalRegistros)
	assert.Equal(t, 3, envelope.Metadata.TotalOriginal)
}

func TestExportEndpoint_BadConfig(t *testing.T) {
	router := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]any{"format": "bmp"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/export", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

type fakeAuth struct {
	authed bool
}

func (f fakeAuth) Check(context.Context, string) (auth.Session, error) {
	return auth.Session{Authenticated: f.authed, User: auth.User{Email: "a@b.c"}}, nil
}

func (fakeAuth) Login(context.Context, string, string) (auth.Session, error) {
	return auth.Session{}, nil
}

func (fakeAuth) Logout(context.Context, string) error { return nil }

func TestAuthMiddleware(t *testing.T) {
	denied := newTestRouter(t, fakeAuth{authed: false})

	rr := httptest.NewRecorder()
	denied.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Health stays open.
	rr = httptest.NewRecorder()
	denied.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	allowed := newTestRouter(t, fakeAuth{authed: true})
	rr = httptest.NewRecorder()
	allowed.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
