package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mockinterview/internal/interview"
	"github.com/pavelanni/mockinterview/internal/llm"
	"github.com/pavelanni/mockinterview/internal/model"
	"github.com/pavelanni/mockinterview/internal/report"
)

const maxBodyBytes = 1 << 20

// ProviderLister reports which LLM providers can serve sessions.
type ProviderLister interface {
	Providers() []llm.ProviderInfo
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc       *interview.Service
	providers ProviderLister
	config    model.AppConfig
	now       func() time.Time
}

// New creates a new Handler.
func New(svc *interview.Service, providers ProviderLister, cfg model.AppConfig) *Handler {
	return &Handler{svc: svc, providers: providers, config: cfg, now: time.Now}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/interview", func(r chi.Router) {
		r.Get("/providers", h.handleProviders)
		r.Post("/start", h.handleStart)
		r.Route("/session/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Post("/answer", h.handleAnswer)
			r.Post("/finalize", h.handleFinalize)
			r.Get("/report.html", h.handleReportHTML)
			r.Get("/export/{kind}", h.handleExport)
			r.Get("/export/{kind}/base64", h.handleExportBase64)
		})
	})
}

// startRequest mirrors the public start payload. model_provider wins over
// provider when both are set.
type startRequest struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	Domain        string `json:"domain"`
	Experience    string `json:"experience"`
	Mode          string `json:"mode"`
	ModelProvider string `json:"model_provider"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	APIKey        string `json:"api_key"`
}

type startResponse struct {
	SessionID string           `json:"session_id"`
	Questions []model.Question `json:"questions"`
}

type answerRequest struct {
	QuestionID *int   `json:"question_id"`
	Answer     string `json:"answer"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleProviders(w http.ResponseWriter, _ *http.Request) {
	provider := h.config.DefaultProvider
	if provider == "" {
		provider = string(llm.ProviderGemini)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default_provider": provider,
		"providers":        h.providers.Providers(),
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	provider := req.ModelProvider
	if provider == "" {
		provider = req.Provider
	}

	sess, err := h.svc.Start(r.Context(), interview.StartParams{
		Name:       req.Name,
		Role:       req.Role,
		Domain:     req.Domain,
		Experience: req.Experience,
		Mode:       req.Mode,
		Provider:   provider,
		Model:      req.Model,
		APIKey:     req.APIKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{SessionID: sess.ID, Questions: sess.Questions})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.QuestionID == nil {
		writeDetail(w, http.StatusBadRequest, "question_id is required")
		return
	}

	rec, err := h.svc.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), *req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Evaluation)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Finalize(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.HTML(sess).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.exportPDF(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		slog.Warn("write export", "error", err)
	}
}

func (h *Handler) handleExportBase64(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.exportPDF(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.Base64())
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) (*report.Document, bool) {
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	doc, err := report.PDF(r.Context(), sess, kind, h.now())
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	slog.Info("exported session", "session_id", sess.ID, "kind", kind, "bytes", len(doc.Data))
	return doc, true
}

// providerErrorBody is the client-visible form of a failed LLM call.
type providerErrorBody struct {
	Message       string `json:"message"`
	Provider      string `json:"provider"`
	Kind          string `json:"kind"`
	UsedUserKey   bool   `json:"used_user_key"`
	FallbackTried bool   `json:"fallback_tried"`
}

// writeError maps service errors to status codes. Bodies follow the
// {"detail": ...} envelope the interview UI expects.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *llm.ProviderError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": providerErrorBody{
			Message:       pe.Message,
			Provider:      string(pe.Provider),
			Kind:          string(pe.Kind),
			UsedUserKey:   pe.UsedCallerKey,
			FallbackTried: pe.FallbackTried,
		}})
	case errors.Is(err, interview.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, interview.ErrSessionCompleted):
		writeDetail(w, http.StatusConflict, "Session already completed")
	case errors.Is(err, interview.ErrInvalidQuestionReference):
		writeDetail(w, http.StatusBadRequest, "Question id not found in session")
	case errors.Is(err, interview.ErrNoAnswers):
		writeDetail(w, http.StatusBadRequest, "No answers provided")
	case errors.Is(err, report.ErrNotCompleted):
		writeDetail(w, http.StatusBadRequest, "Session not completed. Please finalize the session first.")
	case errors.Is(err, interview.ErrInvalidInput), errors.Is(err, report.ErrUnknownKind):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+strings.TrimPrefix(err.Error(), "json: "))
		return false
	}
	return true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}
