package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/go-chi/render"
)

// Callable request and response envelopes.

type setRoleRequest struct {
	Data struct {
		UID  string `json:"uid"`
		Role string `json:"role"`
	} `json:"data"`
}

type callableResult struct {
	Result any `json:"result"`
}

type callableError struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode maps a service error onto the callable code and HTTP status.
func ErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return "unauthenticated", http.StatusUnauthorized
	case errors.Is(err, common.ErrPermissionDenied):
		return "permission-denied", http.StatusForbidden
	case errors.Is(err, common.ErrInvalidArgument):
		return "invalid-argument", http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return "not-found", http.StatusNotFound
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := ErrorCode(err)
	writeCallableError(w, r, status, code, err.Error())
}

func writeCallableError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	render.Status(r, status)
	render.JSON(w, r, callableError{Error: errorBody{Code: code, Message: msg}})
}

func (s *HTTPServer) setRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, common.Status(common.ErrInvalidArgument, "Malformed request"))
		return
	}

	caller := auth.FromContext(r.Context())
	if err := s.roles.SetRole(r.Context(), caller, req.Data.UID, req.Data.Role); err != nil {
		if code, _ := ErrorCode(err); code == "internal" {
			s.logger.Error(r.Context(), "setRole failed", logging.Err(err))
		}
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, callableResult{Result: map[string]bool{"success": true}})
}
