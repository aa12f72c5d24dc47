package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fhir4ds/fhirsql/internal/engine"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a JSON HTTP API for translation and queries",
		Long: `Start an HTTP server exposing the compiler:

  POST /translate  {"expression": "...", "resource": "Patient"}  -> {"sql": "..."}
  POST /query      {"expression": "...", "resource": "Patient"}  -> {"columns": [...], "rows": [...]}
  GET  /healthz`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()
			return serveAPI(cmd.Context(), e, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}

type apiRequest struct {
	Expression string `json:"expression"`
	Resource   string `json:"resource"`
}

func newAPIRouter(e *engine.Engine) http.Handler {
	r := chi.NewMux()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/translate", func(w http.ResponseWriter, req *http.Request) {
		body, ok := decodeAPIRequest(w, req)
		if !ok {
			return
		}
		res, err := e.Translate(body.Expression, body.Resource)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sql": res.SQL})
	})

	r.Post("/query", func(w http.ResponseWriter, req *http.Request) {
		body, ok := decodeAPIRequest(w, req)
		if !ok {
			return
		}
		res, err := e.Run(req.Context(), body.Expression, body.Resource)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"columns": res.Columns,
			"rows":    res.Rows,
		})
	})

	return r
}

func serveAPI(ctx context.Context, e *engine.Engine, port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", port))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    addr,
		Handler: newAPIRouter(e),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func decodeAPIRequest(w http.ResponseWriter, req *http.Request) (apiRequest, bool) {
	var body apiRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return body, false
	}
	if body.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expression is required"})
		return body, false
	}
	if body.Resource == "" {
		body.Resource = "Patient"
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
