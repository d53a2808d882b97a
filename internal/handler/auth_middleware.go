package handler

import (
	"net/http"
	"strings"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func (h *Handler) GetJWTClaimsFromRequest(r *http.Request) (jwt.MapClaims, error) {
	bearerHeader := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(bearerHeader, "Bearer ")
	if !ok || token == "" {
		return nil, errNoToken
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return h.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
		return nil, errInvalidJWT
	}

	return claims, nil
}

func userFromClaims(claims jwt.MapClaims) (*model.User, error) {
	userIDString, ok := claims["id"].(string)
	if !ok {
		return nil, errInvalidJWT
	}
	userID, err := uuid.Parse(userIDString)
	if err != nil {
		return nil, errInvalidUserID
	}

	role, _ := claims["role"].(string)

	return &model.User{
		ID:   userID,
		Role: role,
	}, nil
}

func (h *Handler) authMiddleware(r *http.Request) (*model.User, error) {
	claims, err := h.GetJWTClaimsFromRequest(r)
	if err != nil {
		return nil, err
	}

	return userFromClaims(claims)
}
