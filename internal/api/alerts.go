package api

import (
	"fmt"
	"net/http"

	"github.com/nerrad567/forestos-core/internal/alert"
	"github.com/nerrad567/forestos-core/internal/auth"
)

const (
	msgAlertNotFound  = "Alert not found"
	msgAlertForbidden = "Alert doesn't belong to you"
)

// alertListResponse is the body of GET /alerts.
type alertListResponse struct {
	Alerts []alert.Alert `json:"alerts"`
	Total  int           `json:"total"`
	Skip   int           `json:"skip"`
	Limit  int           `json:"limit"`
}

// markAllReadResponse is the body of POST /alerts/mark-all-read.
type markAllReadResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (s *Server) ownedAlert(w http.ResponseWriter, r *http.Request) (*alert.Alert, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return nil, false
	}
	a, err := s.alerts.GetByID(r.Context(), id)
	a, err = auth.RequireOwnership(userFromContext(r.Context()), a, err)
	if err != nil {
		s.writeAccessError(w, err, msgAlertNotFound, msgAlertForbidden)
		return nil, false
	}
	return a, true
}

// handleListAlerts returns the caller's alerts, newest first.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	pg, err := queryPage(r, 100, 500)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	isRead, err := queryBool(r, "is_read")
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	owner := userFromContext(r.Context()).ID
	filter := alert.Filter{IsRead: isRead, Skip: pg.Skip, Limit: pg.Limit}
	alerts, err := s.alerts.List(r.Context(), owner, filter)
	if err != nil {
		s.logger.Error("listing alerts", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	total, err := s.alerts.Count(r.Context(), owner, filter)
	if err != nil {
		s.logger.Error("counting alerts", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, alertListResponse{Alerts: alerts, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	a, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	a, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}

	updated, err := s.alerts.MarkRead(r.Context(), a.ID)
	if err != nil {
		s.writeAccessError(w, err, msgAlertNotFound, msgAlertForbidden)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleMarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	owner := userFromContext(r.Context()).ID
	n, err := s.alerts.MarkAllRead(r.Context(), owner)
	if err != nil {
		s.logger.Error("marking alerts read", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, markAllReadResponse{
		Message: fmt.Sprintf("Marked %d alerts as read", n),
		Count:   n,
	})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	a, ok := s.ownedAlert(w, r)
	if !ok {
		return
	}

	if err := s.alerts.Delete(r.Context(), a.ID); err != nil {
		s.writeAccessError(w, err, msgAlertNotFound, msgAlertForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
