package httpapi

import (
	"net/http"
	"strconv"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/middleware"
	"github.com/MrEthical07/shiftAuth/permission"
	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// handleIssueAPIKey rotates the caller's key. The plaintext is shown once.
func (s *Server) handleIssueAPIKey(w http.ResponseWriter, r *http.Request) {
	uid, _ := shiftAuth.UserIDFromContext(r.Context())

	key, err := s.engine.IssueAPIKey(r.Context(), uid)
	if err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, map[string]string{
		"api_key": key,
		"header":  s.engine.APIKeyHeader(),
	})
}

func (s *Server) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	uid, _ := shiftAuth.UserIDFromContext(r.Context())

	if err := s.engine.RevokeAPIKey(r.Context(), uid); err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateUser registers a User-role account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(r, &req) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id, err := s.engine.RegisterAccount(r.Context(), shiftAuth.NewAccount{
		FullName: req.FullName,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}

	writeJSON(w, http.StatusCreated, identityResponse{UserID: id, Role: permission.RoleUser})
}

// handleUpdateRole applies a role change on behalf of the caller. Callers
// cannot target themselves.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || target <= 0 {
		writeBadRequest(w, "invalid user id")
		return
	}

	var req updateRoleRequest
	if !decodeJSON(r, &req) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	next, err := permission.ParseRole(req.Role)
	if err != nil {
		writeBadRequest(w, "unknown role")
		return
	}

	actor, _ := shiftAuth.UserIDFromContext(r.Context())
	if actor == target {
		middleware.WriteError(w, s.engine, shiftAuth.ErrSelfRoleChange)
		return
	}

	if err := s.engine.UpdateRole(r.Context(), target, next, actor); err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{UserID: target, Role: next})
}
