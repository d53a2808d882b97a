package handler

import (
	"net/http"
	"strings"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
)

func (h *Handler) adminMiddleware(r *http.Request) (*model.User, error) {
	user, err := h.authMiddleware(r)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(user.Role) != "admin" {
		return nil, errNotAdmin
	}

	return user, nil
}
