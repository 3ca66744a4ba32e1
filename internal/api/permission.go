package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"coffeeshop/internal/auth"
	"coffeeshop/internal/logging"
)

// claimsHandler is a handler that runs only after the permission gate passed.
type claimsHandler func(w http.ResponseWriter, r *http.Request, claims auth.Claims)

func (s *Server) requirePermission(permission string, next claimsHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gate == nil {
			writeError(w, http.StatusInternalServerError, "permission gate not configured")
			return
		}
		claims, err := s.gate.Check(r.Context(), r.Header.Get("Authorization"), permission)
		if err != nil {
			authErr, ok := auth.AsError(err)
			if !ok {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if authErr.Status == http.StatusForbidden {
				s.metrics.IncAuthForbidden()
			} else {
				s.metrics.IncAuthDenied()
			}
			logging.Allowlist(s.logger, map[string]string{
				"event":      "permission_denied",
				"request_id": middleware.GetReqID(r.Context()),
				"permission": permission,
				"auth_code":  authErr.Code,
				"status":     strconv.Itoa(authErr.Status),
			})
			writeCodedError(w, authErr.Status, authErr.Code, authErr.Description)
			return
		}
		next(w, r, claims)
	}
}
