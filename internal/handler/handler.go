package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/service"
	"go.uber.org/zap"
)

type Resp map[string]interface{}

type Handler struct {
	logger       *zap.Logger
	services     *service.Service
	accessSecret []byte
}

func New(logger *zap.Logger, services *service.Service, accessSecret []byte) *Handler {
	return &Handler{
		logger:       logger,
		services:     services,
		accessSecret: accessSecret,
	}
}

type userHandlerFunc func(user *model.User, w http.ResponseWriter, r *http.Request)

func (h *Handler) withUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.authMiddleware(r)
		if err != nil {
			h.Respond(w, Resp{"error": err.Error()}, http.StatusUnauthorized)
			return
		}

		next(user, w, r)
	}
}

func (h *Handler) withAdmin(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, err := h.adminMiddleware(r)
		if errors.Is(err, errNotAdmin) {
			h.Respond(w, Resp{"error": err.Error()}, http.StatusForbidden)
			return
		}
		if err != nil {
			h.Respond(w, Resp{"error": err.Error()}, http.StatusUnauthorized)
			return
		}

		next(admin, w, r)
	}
}

func (h *Handler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// GET
	mux.HandleFunc("GET /api/v1/notifications", h.withUser(h.notificationsGet))

	// POST
	mux.HandleFunc("POST /api/v1/notifications", h.withAdmin(h.notificationsCreateManually))

	// PATCH
	mux.HandleFunc("PATCH /api/v1/notifications/read-all", h.withUser(h.notificationsMarkAllRead))
	mux.HandleFunc("PATCH /api/v1/notifications/{nId}/read", h.withUser(h.notificationsMarkRead))

	// DELETE
	mux.HandleFunc("DELETE /api/v1/notifications/read", h.withUser(h.notificationsDeleteAllRead))
	mux.HandleFunc("DELETE /api/v1/notifications/{nId}", h.withUser(h.notificationsDelete))

	return mux
}

func (h *Handler) Respond(w http.ResponseWriter, resp any, statusCode int) {
	respJSON, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(respJSON)
}

func (h *Handler) RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		h.Respond(w, Resp{"error": service.ErrInvalidInput.Error()}, http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		h.Respond(w, Resp{"error": service.ErrNotFound.Error()}, http.StatusNotFound)
	case errors.Is(err, service.ErrStoreUnavailable):
		h.Respond(w, Resp{"error": service.ErrStoreUnavailable.Error()}, http.StatusServiceUnavailable)
	default:
		h.logger.Sugar().Errorf("unexpected error: %s", err.Error())
		h.Respond(w, Resp{"error": "internal server error"}, http.StatusInternalServerError)
	}
}
