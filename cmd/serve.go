package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/audit"
	"github.com/sells-group/schema-audit/internal/ledger"
	"github.com/sells-group/schema-audit/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the published report, badges and quality stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		l, err := ledger.Open(ctx, cfg.Ledger)
		if err != nil {
			return eris.Wrap(err, "open ledger")
		}
		defer l.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(cfg.Audit.Output, l),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("report", cfg.Audit.Output))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter serves the report at outputPath. The file is re-read on every
// request so a new run is visible without a restart. /stats is only mounted
// when l is non-nil.
func buildRouter(outputPath string, l ledger.Ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/reports", func(w http.ResponseWriter, r *http.Request) {
		entries, err := audit.ReadOutput(outputPath)
		if err != nil {
			serveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/reports/{datasetID}", func(w http.ResponseWriter, r *http.Request) {
		entries, err := audit.ReadOutput(outputPath)
		if err != nil {
			serveError(w, err)
			return
		}
		entry, ok := entries[chi.URLParam(r, "datasetID")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not in report"})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	})

	r.Get("/badges/{datasetID}", func(w http.ResponseWriter, r *http.Request) {
		entries, err := audit.ReadOutput(outputPath)
		if err != nil {
			serveError(w, err)
			return
		}
		entry, ok := entries[chi.URLParam(r, "datasetID")]
		if !ok || entry.BadgeURL == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no badge for dataset"})
			return
		}
		http.Redirect(w, r, entry.BadgeURL, http.StatusFound)
	})

	if l != nil {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			records, err := l.Load(r.Context())
			if err != nil {
				zap.L().Error("stats: load history", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, monitoring.Collect(records, 0, time.Now()))
		})
	}

	return r
}

func serveError(w http.ResponseWriter, err error) {
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report published yet"})
		return
	}
	zap.L().Error("read report", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report unreadable"})
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
