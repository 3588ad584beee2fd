package siop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovatis-mc/emendas-cli/internal/reconcile"
	"github.com/innovatis-mc/emendas-cli/internal/resilience"
)

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func quickRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/summary", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_opportunities": 2,
			"years_covered": [2024, 2025],
			"unique_ufs": ["SP"],
			"all_ministries": [{"ministry": "Ministério da Saúde", "count": 2, "has_relationship": true}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(noRetry()))
	sum, err := c.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalOpportunities)
	assert.Equal(t, []int{2024, 2025}, sum.YearsCovered)
	require.Len(t, sum.AllMinistries, 1)
	assert.True(t, sum.AllMinistries[0].HasRelationship)
}

func TestSearch_EncodesFilterDimensions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"opportunities": [], "total": 0}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(noRetry()))
	_, err := c.Search(context.Background(), SearchParams{
		Term:        "saude",
		Years:       []int{2024, 2025},
		RP:          []string{"6", "7"},
		UFs:         []string{"SP", "RJ"},
		Modalidades: []string{"99"},
	})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "q=saude")
	assert.Contains(t, gotQuery, "years=2024%2C2025")
	assert.Contains(t, gotQuery, "rp=6%2C7")
	assert.Contains(t, gotQuery, "ufs=SP%2CRJ")
	assert.Contains(t, gotQuery, "modalidades=99")
}

func TestDo_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(quickRetry(3)))
	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_PermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(quickRetry(5)))
	require.Error(t, c.Health(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	c := NewClient(WithBaseURL(srv.URL), WithRetry(noRetry()), WithBreaker(b))

	require.Error(t, c.Health(context.Background()))
	require.Error(t, c.Health(context.Background()))

	err := c.Health(context.Background())
	assert.ErrorIs(t, err, resilience.ErrOpen)
}

func TestRefreshS3(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/s3/refresh", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		_, _ = w.Write([]byte(`{"message": "Atualização concluída", "success": true, "synchronous": true}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(noRetry()))
	resp, err := c.RefreshS3(context.Background(), true, true)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Synchronous)
}

func TestSource_PagesThroughBulk(t *testing.T) {
	page := func(ids ...string) string {
		out := `{"total": 3, "opportunities": [`
		for i, id := range ids {
			if i > 0 {
				out += ","
			}
			out += `{"codigo_emenda": "` + id + `", "ano": 2024, "dotacao_atual": "150.000,00"}`
		}
		return out + `]}`
	}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			_, _ = w.Write([]byte(page("2024-0001-0001", "2024-0001-0002")))
		default:
			_, _ = w.Write([]byte(page("2024-0001-0003")))
		}
		calls.Add(1)
	}))
	defer srv.Close()

	src := NewSource(NewClient(WithBaseURL(srv.URL), WithRetry(noRetry())), 2)
	ds, err := src.Opportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 3)
	assert.Equal(t, "2024-0001-0003", ds[2].IdentificacaoEmenda)
	assert.Equal(t, 150_000.0, ds[0].DotacaoAtual)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSource_SearchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "saude", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"total": 1, "opportunities": [
			{"codigo_emenda": "2025-0002-0001", "ano": 2025, "dotacao_atual": "2.500.000,00", "valor_empenhado": "500.000,00"}
		]}`))
	}))
	defer srv.Close()

	src := NewSource(NewClient(WithBaseURL(srv.URL), WithRetry(noRetry())), 0)
	ds, err := src.Search(context.Background(), reconcile.SearchQuery{Term: "saude"})
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, 2_500_000.0, ds[0].DotacaoAtual)
	assert.Equal(t, 2_000_000.0, ds[0].AvailableValue())
}
