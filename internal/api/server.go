// Package api exposes the chat engine over HTTP: session listing and
// lifecycle, document upload, chat turns, and transcript export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"docchat/internal/engine"
	"docchat/internal/models"
	"docchat/internal/util"
)

// Engine is the orchestration surface the handlers call. Implemented by
// *engine.Engine.
type Engine interface {
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	Ingest(ctx context.Context, in engine.IngestInput) (engine.IngestResult, error)
	Chat(ctx context.Context, sessionID, query, model, apiKeyOverride string) (string, error)
	Rename(ctx context.Context, sessionID, title string) error
	Delete(ctx context.Context, sessionID string) error
	ExportCSV(ctx context.Context, sessionID string) ([]byte, error)
}

type Server struct {
	eng    Engine
	logger *slog.Logger
}

func NewServer(eng Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{eng: eng, logger: logger}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/process", s.handleProcess)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionScoped)
	return withCORS(s.withLogging(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleProcess ingests one multipart upload batch. Form fields: "files"
// (one or more PDFs), optional "session_id" to append to an existing
// session, optional "model" and "custom_api_key" to validate the inference
// selection up front.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	files := make([]engine.FileUpload, 0, len(headers))
	var rejected []engine.SkippedFile
	for _, fh := range headers {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			rejected = append(rejected, engine.SkippedFile{Filename: fh.Filename, Reason: "not a PDF"})
			continue
		}
		f, err := fh.Open()
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("open %s: %w", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("read %s: %w", fh.Filename, err))
			return
		}
		files = append(files, engine.FileUpload{Name: fh.Filename, Data: data})
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	res, err := s.eng.Ingest(r.Context(), engine.IngestInput{
		SessionID:      strings.TrimSpace(r.FormValue("session_id")),
		Files:          files,
		Model:          strings.TrimSpace(r.FormValue("model")),
		APIKeyOverride: strings.TrimSpace(r.FormValue("custom_api_key")),
	})
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	res.Skipped = append(res.Skipped, rejected...)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		SessionID    string `json:"session_id"`
		Query        string `json:"query"`
		Model        string `json:"model"`
		CustomAPIKey string `json:"custom_api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Query = strings.TrimSpace(req.Query)
	if req.SessionID == "" || req.Query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("session_id and query are required"))
		return
	}

	answer, err := s.eng.Chat(r.Context(), req.SessionID, req.Query, req.Model, req.CustomAPIKey)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": answer})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	sums, err := s.eng.ListSessions(r.Context())
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	out := make(map[string]any, len(sums))
	for _, sum := range sums {
		out[sum.SessionID] = map[string]any{
			"title":        sum.Title,
			"last_updated": sum.LastUpdated.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	sessionID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, sessionID)
		case http.MethodDelete:
			s.handleDeleteSession(w, r, sessionID)
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "title":
			if r.Method != http.MethodPut {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleRename(w, r, sessionID)
			return
		case "export":
			if r.Method != http.MethodGet {
				writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}
			s.handleExport(w, r, sessionID)
			return
		}
	}
	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, err := s.eng.GetSession(r.Context(), sessionID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.eng.Delete(r.Context(), sessionID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Session deleted"})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}
	if err := s.eng.Rename(r.Context(), sessionID, req.Title); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "title": req.Title})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sessionID string) {
	data, err := s.eng.ExportCSV(r.Context(), sessionID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=chat_history_%s.csv", sessionID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// statusFor maps engine and provider failures onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, util.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, util.ErrUpstream), errors.Is(err, util.ErrModelUnavailable), errors.Is(err, util.ErrEmbedding):
		return http.StatusBadGateway
	case errors.Is(err, util.ErrNoExtractableText), errors.Is(err, util.ErrDimensionMismatch), errors.Is(err, engine.ErrNoTranscript):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		// Client went away; 499 is the conventional nginx code for it.
		return 499
	default:
		if err != nil && strings.Contains(err.Error(), "no files provided") {
			return http.StatusBadRequest
		}
		if err != nil && strings.Contains(err.Error(), "no text could be extracted") {
			return http.StatusBadRequest
		}
		if err != nil && strings.Contains(err.Error(), "unknown model") {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "DC-API-4000"

	switch {
	case status >= 500:
		raw := ""
		if err != nil {
			raw = strings.ToLower(err.Error())
		}
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "DC-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "DC-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "DC-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "DC-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusUnauthorized:
		code = "DC-API-4010"
		msg = "The inference provider rejected the API key."
	case status == http.StatusNotFound:
		code = "DC-API-4004"
		msg = "Requested session was not found."
	case status == http.StatusMethodNotAllowed:
		code = "DC-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusTooManyRequests:
		code = "DC-API-4029"
		msg = "The inference provider is rate limiting requests. Retry shortly."
	case status == http.StatusBadGateway:
		code = "DC-API-5020"
		msg = "Inference backend unavailable. Retry shortly."
	case status == 499:
		code = "DC-API-4999"
		msg = "Request was cancelled by the client."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "no files provided"):
			msg = "No PDF files were provided."
		case strings.Contains(low, "no text could be extracted"):
			msg = "No text could be extracted from the uploaded documents."
		case strings.Contains(low, "session_id and query are required"):
			msg = "Both session and query are required."
		case strings.Contains(low, "title is required"):
			msg = "Session title is required."
		case strings.Contains(low, "query cannot be empty"):
			msg = "Query cannot be empty."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "unknown model"):
			msg = "Unknown model selection."
		case strings.Contains(low, "no chat history"):
			msg = "This session has no chat history to export."
		}
	}

	return apiError{Code: code, Message: msg}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
