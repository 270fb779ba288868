package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
	"github.com/davidleathers/auth-risk-engine/internal/service/risk"
)

// maxRequestBody bounds the assessment payload size.
const maxRequestBody = 64 * 1024

// RiskService is the slice of the risk monitor the handlers consume.
type RiskService interface {
	AssessRisk(ctx context.Context, req risk.Request, amb risk.Ambient) *assessment.Assessment
	ForgetUser(ctx context.Context, userID string)
}

// Handler serves the risk engine's HTTP surface.
type Handler struct {
	service  RiskService
	validate *validator.Validate
	logger   *slog.Logger
	version  string
}

// NewHandler creates the handler with a fresh validator.
func NewHandler(service RiskService, logger *slog.Logger, version string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		version:  version,
	}
}

// Routes registers the versioned API endpoints on the mux. Liveness and
// metrics endpoints are registered at the root by the server.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/risk/assessments", h.CreateAssessment)
	mux.HandleFunc("DELETE /api/v1/risk/users/{userID}", h.ForgetUser)
}

// CreateAssessment evaluates one authentication attempt. It always
// answers 200 with an assessment for a well-formed request; evaluation
// faults are absorbed by the service's fallback.
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req AssessmentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request failed validation", validationDetails(err))
		return
	}

	serviceReq, amb := req.toServiceRequest()
	if amb.CorrelationID == "" {
		amb.CorrelationID = RequestID(r.Context())
	}

	a := h.service.AssessRisk(r.Context(), serviceReq, amb)
	h.writeJSON(w, http.StatusOK, toAssessmentResponse(a))
}

// ForgetUser erases a user's learned history. 204 regardless of whether
// the user had any: erasure is idempotent.
func (h *Handler) ForgetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "user id is required", "")
		return
	}
	h.service.ForgetUser(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness. The engine holds no external connections on
// the request path, so alive means ready.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// validationDetails flattens validator errors into one readable string.
func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	details := ""
	for i, fe := range verrs {
		if i > 0 {
			details += "; "
		}
		details += fe.Namespace() + " failed " + fe.Tag()
	}
	return details
}
