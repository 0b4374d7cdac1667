package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/forestos-core/internal/auth"
)

const msgUserNotFound = "User not found"

// updateMeRequest is what a user may change about their own account.
type updateMeRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// updateUserRequest is the superuser form, which can also toggle flags.
type updateUserRequest struct {
	updateMeRequest
	IsActive    *bool `json:"is_active"`
	IsSuperuser *bool `json:"is_superuser"`
}

// userListResponse is the body of GET /users.
type userListResponse struct {
	Users []auth.User `json:"users"`
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}

// toPatch validates the request and hashes a new password.
func (req updateMeRequest) toPatch() (auth.UserPatch, error) {
	var patch auth.UserPatch
	if req.Email != nil {
		email, err := validateEmail(*req.Email)
		if err != nil {
			return patch, err
		}
		patch.Email = &email
	}
	patch.FullName = req.FullName
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return patch, err
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return patch, err
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}

// handleGetMe returns the authenticated user.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

// handleUpdateMe updates the caller's email, name or password.
// Account flags in the body are ignored.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	s.applyUserPatch(w, r, userFromContext(r.Context()).ID, patch)
}

// handleListUsers returns one page of accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	pg, err := queryPage(r, 100, 100)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	users, err := s.users.List(r.Context(), pg.Skip, pg.Limit)
	if err != nil {
		s.logger.Error("listing users", "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	total, err := s.users.Count(r.Context())
	if err != nil {
		s.logger.Error("counting users", "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, userListResponse{Users: users, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

// handleGetUser returns any account.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, msgUserNotFound)
			return
		}
		s.logger.Error("getting user", "user_id", id, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser lets a superuser change any account, including its flags.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	patch.IsActive = req.IsActive
	patch.IsSuperuser = req.IsSuperuser

	s.applyUserPatch(w, r, id, patch)
}

// handleDeleteUser removes an account and everything it owns.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, msgUserNotFound)
			return
		}
		s.logger.Error("deleting user", "user_id", id, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	s.logger.Info("user deleted", "user_id", id, "by", userFromContext(r.Context()).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyUserPatch(w http.ResponseWriter, r *http.Request, id int64, patch auth.UserPatch) {
	user, err := s.users.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeBadRequest(w, msgEmailTaken)
		case errors.Is(err, auth.ErrUserNotFound):
			writeNotFound(w, msgUserNotFound)
		default:
			s.logger.Error("updating user", "user_id", id, "error", err)
			writeInternalError(w, msgInternal)
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}
