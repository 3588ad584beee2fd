package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/dataset"
	"github.com/innovatis-mc/emendas-cli/internal/export"
	"github.com/innovatis-mc/emendas-cli/internal/model"
	"github.com/innovatis-mc/emendas-cli/internal/reconcile"
	"github.com/innovatis-mc/emendas-cli/internal/stats"
	"github.com/innovatis-mc/emendas-cli/pkg/auth"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rec := newReconciler(newSource())
		if err := rec.Init(ctx); err != nil {
			return eris.Wrap(err, "load initial dataset")
		}

		var authClient auth.Client
		if cfg.Auth.BaseURL != "" {
			authClient = auth.NewClient(auth.WithBaseURL(cfg.Auth.BaseURL))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(rec, authClient, cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter wires the dashboard API. Handler construction is separate from
// server lifecycle so tests can drive it with httptest.
func newRouter(rec *reconcile.Reconciler, authClient auth.Client, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if authClient != nil {
			r.Use(requireSession(authClient))
		}

		r.Get("/dashboard", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, buildDashboardView(rec.View(), req))
		})

		r.Put("/dashboard/filters", func(w http.ResponseWriter, req *http.Request) {
			var body filtersRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			rec.SetFilters(req.Context(), body.toFilterState())
			writeJSON(w, http.StatusOK, buildDashboardView(rec.View(), req))
		})

		r.Put("/dashboard/only-related", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Enabled bool `json:"enabled"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			rec.SetOnlyRelated(req.Context(), body.Enabled)
			writeJSON(w, http.StatusOK, buildDashboardView(rec.View(), req))
		})

		r.Put("/dashboard/search", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Term string `json:"term"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			// Debounced: the search fires after the configured quiet window.
			rec.Search(req.Context(), body.Term)
			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"term":   body.Term,
			})
		})

		r.Delete("/dashboard/search", func(w http.ResponseWriter, req *http.Request) {
			rec.ClearSearch(req.Context())
			writeJSON(w, http.StatusOK, buildDashboardView(rec.View(), req))
		})

		r.Post("/dashboard/refresh", func(w http.ResponseWriter, req *http.Request) {
			if err := rec.Refresh(req.Context()); err != nil {
				zap.L().Error("dashboard refresh failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, "refresh failed")
				return
			}
			writeJSON(w, http.StatusOK, buildDashboardView(rec.View(), req))
		})

		r.Post("/export", func(w http.ResponseWriter, req *http.Request) {
			handleExport(rec, w, req)
		})
	})

	return r
}

// requireSession validates the caller's session cookie against the auth
// gateway before letting API requests through.
func requireSession(authClient auth.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := authClient.Check(req.Context(), req.Header.Get("Cookie"))
			if err != nil {
				zap.L().Warn("session check failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, "auth unavailable")
				return
			}
			if !sess.Authenticated {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

type dashboardView struct {
	Mode       string              `json:"mode"`
	SearchTerm string              `json:"search_term,omitempty"`
	Stats      stats.Stats         `json:"stats"`
	Data       []model.Opportunity `json:"data"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	PageCount  int                 `json:"page_count"`
	Error      string              `json:"error,omitempty"`
}

// buildDashboardView sorts and paginates the reconciled dataset per the
// request's query parameters. Pages are 1-based on the wire.
func buildDashboardView(snap reconcile.Snapshot, req *http.Request) dashboardView {
	q := req.URL.Query()

	page := queryInt(q.Get("page"), 1)
	size := queryInt(q.Get("page_size"), dataset.CardPageSize)

	data := snap.Data
	if field := q.Get("sort_by"); field != "" {
		dir := dataset.Direction(q.Get("sort_order"))
		if dir != dataset.Asc {
			dir = dataset.Desc
		}
		data = dataset.Sort(data, field, dir)
	}

	view := dashboardView{
		Mode:       string(snap.Mode),
		SearchTerm: snap.SearchTerm,
		Stats:      snap.Stats,
		Data:       dataset.Paginate(data, page-1, size),
		Total:      len(data),
		Page:       page,
		PageSize:   size,
		PageCount:  dataset.PageCount(len(data), size),
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
	}
	return view
}

func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

type filtersRequest struct {
	Ministries      []string `json:"ministries"`
	Years           []int    `json:"years"`
	RP              []string `json:"rp"`
	Modalidades     []string `json:"modalidades"`
	UFs             []string `json:"ufs"`
	Partidos        []string `json:"partidos"`
	MinDotacaoAtual float64  `json:"min_dotacao_atual"`
}

func (f filtersRequest) toFilterState() model.FilterState {
	return model.FilterState{
		Ministries:      f.Ministries,
		Years:           f.Years,
		RP:              f.RP,
		Modalidades:     f.Modalidades,
		UFs:             f.UFs,
		Partidos:        f.Partidos,
		MinDotacaoAtual: f.MinDotacaoAtual,
	}
}

func handleExport(rec *reconcile.Reconciler, w http.ResponseWriter, req *http.Request) {
	exportCfg := export.DefaultConfig()
	if err := json.NewDecoder(req.Body).Decode(&exportCfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export config")
		return
	}

	snap := rec.View()
	exportReq := export.Request{
		Data:          snap.Data,
		Summary:       snap.Summary,
		Filters:       snap.Filters,
		SearchTerm:    snap.SearchTerm,
		TotalOriginal: len(snap.Data),
	}

	var buf bytes.Buffer
	if err := export.Export(&buf, exportReq, exportCfg); err != nil {
		zap.L().Error("export failed", zap.String("format", string(exportCfg.Format)), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(exportCfg.Format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFileName(exportReq, exportCfg)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func contentType(f export.Format) string {
	switch f {
	case export.FormatCSV:
		return "text/csv; charset=utf-8"
	case export.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case export.FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
