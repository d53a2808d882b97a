package handler

import (
	"encoding/json"
	"net/http"

	"github.com/BloggingApp/notification-lifecycle/internal/dto"
	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/service"
)

func (h *Handler) notificationsGet(user *model.User, w http.ResponseWriter, r *http.Request) {
	notifications, err := h.services.Notification.List(r.Context(), user.ID)
	if err != nil {
		h.RespondError(w, err)
		return
	}

	h.Respond(w, notifications, http.StatusOK)
}

func (h *Handler) notificationsMarkRead(user *model.User, w http.ResponseWriter, r *http.Request) {
	notificationID, err := service.ParseID(r.PathValue("nId"))
	if err != nil {
		h.RespondError(w, err)
		return
	}

	notification, err := h.services.Notification.MarkRead(r.Context(), user.ID, notificationID)
	if err != nil {
		h.RespondError(w, err)
		return
	}

	h.Respond(w, notification, http.StatusOK)
}

func (h *Handler) notificationsMarkAllRead(user *model.User, w http.ResponseWriter, r *http.Request) {
	updated, err := h.services.Notification.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		h.RespondError(w, err)
		return
	}

	h.Respond(w, Resp{"updated": updated}, http.StatusOK)
}

func (h *Handler) notificationsDelete(user *model.User, w http.ResponseWriter, r *http.Request) {
	notificationID, err := service.ParseID(r.PathValue("nId"))
	if err != nil {
		h.RespondError(w, err)
		return
	}

	if err := h.services.Notification.Delete(r.Context(), user.ID, notificationID); err != nil {
		h.RespondError(w, err)
		return
	}

	h.Respond(w, Resp{}, http.StatusOK)
}

func (h *Handler) notificationsDeleteAllRead(user *model.User, w http.ResponseWriter, r *http.Request) {
	removed, err := h.services.Notification.DeleteAllRead(r.Context(), user.ID)
	if err != nil {
		h.RespondError(w, err)
		return
	}

	h.Respond(w, Resp{"removed": removed}, http.StatusOK)
}

func (h *Handler) notificationsCreateManually(admin *model.User, w http.ResponseWriter, r *http.Request) {
	var input dto.CreateNotificationManually
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.Respond(w, Resp{"error": errInvalidBody.Error()}, http.StatusBadRequest)
		return
	}

	recipientID, err := service.ParseID(input.RecipientID)
	if err != nil {
		h.RespondError(w, err)
		return
	}

	notification, err := h.services.Notification.CreateNotification(r.Context(), recipientID, model.Kind(input.Kind), input.Message, input.Link)
	if err != nil {
		h.RespondError(w, err)
		return
	}

	h.logger.Sugar().Infof("admin(%s) created notification(%s) for user(%s)", admin.ID.String(), notification.ID.String(), recipientID.String())

	h.Respond(w, notification, http.StatusCreated)
}
