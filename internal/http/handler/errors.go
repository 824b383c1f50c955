package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ctlabs-oss/authcore/internal/http/response"
	"github.com/ctlabs-oss/authcore/internal/service"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with no detail leaked to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCode):
		response.Error(w, r, http.StatusBadRequest, "INVALID_CODE", "invalid verification code", nil)
	case errors.Is(err, service.ErrExpiredCode):
		response.Error(w, r, http.StatusBadRequest, "EXPIRED_CODE", "verification code has expired", nil)
	case errors.Is(err, service.ErrAuthentication):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
	case errors.Is(err, service.ErrTokenRevoked):
		response.Error(w, r, http.StatusUnauthorized, "TOKEN_REVOKED", "refresh token has been revoked", nil)
	case errors.Is(err, service.ErrTokenExpired):
		response.Error(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "refresh token has expired", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "operation not permitted", nil)
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}
	return true
}
