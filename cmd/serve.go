package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelscout/discovery-cli/internal/hub"
	"github.com/reelscout/discovery-cli/internal/model"
	"github.com/reelscout/discovery-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the search API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initHub(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Background probe loop keeps source health current while serving.
		go env.Monitor.Run(ctx)

		// Periodically persist analytics counters.
		go func() {
			interval := time.Duration(cfg.Health.SnapshotSecs) * time.Second
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := env.Hub.FlushSnapshot(ctx); err != nil {
						zap.L().Warn("snapshot flush failed", zap.Error(err))
					}
				}
			}
		}()

		r := newRouter(env.Hub)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
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

		// Final flush on the way out.
		if err := env.Hub.FlushSnapshot(cmd.Context()); err != nil {
			zap.L().Warn("final snapshot flush failed", zap.Error(err))
		}

		return nil
	},
}

// newRouter builds the HTTP API surface.
func newRouter(h *hub.Hub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, h.SystemHealth())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, h.SystemHealth())
		})

		r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
			var sr model.SearchRequest
			if err := json.NewDecoder(req.Body).Decode(&sr); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if sr.Query == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
				return
			}
			if sr.Strategy != "" && !sr.Strategy.Valid() {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown strategy"})
				return
			}

			res, err := h.IntelligentSearch(req.Context(), &sr)
			if err != nil {
				zap.L().Error("search failed", zap.String("query", sr.Query), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/analytics", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, h.AnalyticsDashboard())
		})

		r.Get("/sources", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"sources": h.Sources()})
		})

		r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
			recs, err := h.SearchHistory(req.Context(), 50)
			if err != nil {
				zap.L().Error("history lookup failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history lookup failed"})
				return
			}
			if recs == nil {
				recs = []store.SearchRecord{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"searches": recs})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
