package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roster/internal/users/models"
	"roster/internal/users/service"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	"roster/pkg/platform/middleware/admin"
	request "roster/pkg/platform/middleware/request"
)

// Service defines the user query and pass trigger operations.
type Service interface {
	Query(ctx context.Context, f models.Filter) (map[string]models.UserView, error)
	RunPass(ctx context.Context) (models.PassResult, error)
	LastPass(ctx context.Context) (*models.PassResult, error)
}

// Handler serves /data.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

// New creates a users Handler. A non-empty adminToken guards POST /data.
func New(svc Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: svc, logger: logger, adminToken: adminToken}
}

// Register registers the /data routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/data", h.handleQuery)
	r.Get("/data/status", h.handleStatus)
	r.With(admin.RequireAdminToken(h.adminToken, h.logger)).Post("/data", h.handleRunPass)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	filter, err := service.ParseFilter(r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "invalid user query",
			"request_id", requestID,
			"query", r.URL.RawQuery,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	users, err := h.service.Query(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query users",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// handleRunPass runs one pass and reports the counts as plain text. A failed
// publish still reports the counts, with a 500.
func (h *Handler) handleRunPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	result, err := h.service.RunPass(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodePassInProgress) {
			h.logger.WarnContext(ctx, "manual pass not started",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "manual pass failed",
			"request_id", requestID,
			"pass_id", result.PassID.String(),
			"error", err,
		)
		httputil.WriteText(w, http.StatusInternalServerError, result.Message())
		return
	}

	h.logger.InfoContext(ctx, "manual pass completed",
		"request_id", requestID,
		"pass_id", result.PassID.String(),
		"actor", admin.Actor(ctx),
		"total", result.Total,
		"success", result.Success,
	)
	httputil.WriteText(w, http.StatusOK, result.Message())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.LastPass(ctx)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load pass status",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
