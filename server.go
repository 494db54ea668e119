package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"unityarchitect/config"
	"unityarchitect/internal/engine"
	"unityarchitect/internal/llm"
	"unityarchitect/internal/models"
	"unityarchitect/internal/store"
)

// historyStore is the part of the store the HTTP handlers use.
type historyStore interface {
	ListHistory(ctx context.Context, userID string) ([]models.SessionSummary, error)
	GetSession(ctx context.Context, id string) (models.Session, error)
	RenameSession(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error
	SaveProviderConfig(ctx context.Context, userID string, cfg models.ProviderConfig) error
}

type server struct {
	engine         *engine.Engine
	store          historyStore
	requestTimeout time.Duration
	allowedOrigin  string
}

// configRequest is the body of POST /config.
type configRequest struct {
	UserID       string `json:"user_id"`
	ProviderType string `json:"provider_type"`
	ModelName    string `json:"model_name"`
	APIKey       string `json:"api_key"`
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.corsMiddleware(s.analyzeHandler))
	mux.HandleFunc("/health", s.corsMiddleware(healthCheckHandler))
	mux.HandleFunc("/history", s.corsMiddleware(s.historyHandler))
	mux.HandleFunc("/history/item", s.corsMiddleware(s.historyItemHandler))
	mux.HandleFunc("/config", s.corsMiddleware(s.configHandler))
	return mux
}

func (s *server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Cache-Control")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error decoding JSON request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	resp, err := s.engine.Run(ctx, req)
	if err != nil {
		var perr *llm.ProviderError
		switch {
		case errors.Is(err, engine.ErrEmptyInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, context.DeadlineExceeded):
			http.Error(w, "Analysis timed out", http.StatusGatewayTimeout)
		case errors.As(err, &perr):
			http.Error(w, fmt.Sprintf("AI error: %s", perr.Cause), http.StatusBadGateway)
		default:
			http.Error(w, fmt.Sprintf("Error during analysis: %v", err), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "Storage is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireStore(w) {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	list, err := s.store.ListHistory(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) historyItemHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var err error
	switch r.Method {
	case http.MethodGet:
		var session models.Session
		if session, err = s.store.GetSession(r.Context(), id); err == nil {
			writeJSON(w, http.StatusOK, session)
			return
		}
	case http.MethodPatch:
		var body renameRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil || body.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		if err = s.store.RenameSession(r.Context(), id, body.Title); err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
			return
		}
	case http.MethodDelete:
		if err = s.store.DeleteSession(r.Context(), id); err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *server) configHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireStore(w) {
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	cfg := models.ParseProviderConfig(req.ProviderType, req.ModelName, req.APIKey)
	if err := s.store.SaveProviderConfig(r.Context(), req.UserID, cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logrus.WithField("user", req.UserID).Infof("Provider set to %s", cfg)
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "provider": cfg.ProviderType()})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := config.AppConfig
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		s := &server{
			engine:         a.engine,
			requestTimeout: cfg.Analysis.RequestTimeout,
			allowedOrigin:  cfg.Server.AllowedOrigin,
		}
		if a.store != nil {
			s.store = a.store
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logrus.Infof("Starting server on port %s...", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		case <-ctx.Done():
		}

		logrus.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
