package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/watering"
)

const (
	msgEventNotFound  = "Watering event not found"
	msgEventForbidden = "Watering event doesn't belong to your plants"
)

// eventListResponse is the body of GET /watering/{plant_id}/history.
type eventListResponse struct {
	Events []watering.Event `json:"events"`
	Total  int              `json:"total"`
	Skip   int              `json:"skip"`
	Limit  int              `json:"limit"`
}

// ownedEvent loads the event named in the path and checks that the caller
// owns its plant. On failure the response has been written.
func (s *Server) ownedEvent(w http.ResponseWriter, r *http.Request) (*watering.Event, bool) {
	id, err := pathID(r, "event_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return nil, false
	}
	ev, err := s.watering.Get(r.Context(), id)
	ev, err = auth.RequireOwnership(userFromContext(r.Context()), ev, err)
	if err != nil {
		s.writeAccessError(w, err, msgEventNotFound, msgEventForbidden)
		return nil, false
	}
	return ev, true
}

// handleTriggerWatering creates a pending event and sends the pump command.
func (s *Server) handleTriggerWatering(w http.ResponseWriter, r *http.Request) {
	trigger, err := watering.ParseTrigger(r.URL.Query().Get("trigger"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	p, ok := s.ownedPlant(w, r, "plant_id")
	if !ok {
		return
	}

	ev, err := s.watering.Trigger(r.Context(), p.ID, trigger)
	if err != nil {
		s.writeAccessError(w, err, msgPlantNotFound, msgForbidden)
		return
	}

	s.logger.Info("watering triggered", "event_id", ev.ID, "plant_id", p.ID, "trigger", trigger)
	writeJSON(w, http.StatusCreated, ev)
}

// handleWateringHistory lists the plant's events, newest first.
func (s *Server) handleWateringHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPlant(w, r, "plant_id")
	if !ok {
		return
	}
	days, err := queryInt(r, intRange{name: "days", def: 30, min: 1, max: 365})
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	pg, err := queryPage(r, 100, 500)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	events, total, err := s.watering.History(r.Context(), p.ID, days, pg.Skip, pg.Limit)
	if err != nil {
		s.logger.Error("listing watering history", "plant_id", p.ID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, eventListResponse{Events: events, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

// handleWateringStatistics aggregates the plant's completed events.
func (s *Server) handleWateringStatistics(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPlant(w, r, "plant_id")
	if !ok {
		return
	}
	days, err := queryInt(r, intRange{name: "days", def: 30, min: 7, max: 365})
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	stats, err := s.watering.Statistics(r.Context(), p, days)
	if err != nil {
		s.logger.Error("computing watering statistics", "plant_id", p.ID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleUpdateWateringEvent applies a status or measurement update.
func (s *Server) handleUpdateWateringEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.ownedEvent(w, r)
	if !ok {
		return
	}

	var patch watering.EventPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	updated, err := s.watering.Update(r.Context(), ev.ID, patch)
	if err != nil {
		if errors.Is(err, watering.ErrInvalidEvent) {
			writeValidationError(w, err.Error())
			return
		}
		s.writeAccessError(w, err, msgEventNotFound, msgEventForbidden)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteWateringEvent removes an event.
func (s *Server) handleDeleteWateringEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.ownedEvent(w, r)
	if !ok {
		return
	}

	if err := s.watering.Delete(r.Context(), ev.ID); err != nil {
		s.writeAccessError(w, err, msgEventNotFound, msgEventForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
