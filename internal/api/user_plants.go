package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/plant"
)

const msgPlantNotFound = "Plant not found"

// createUserPlantRequest is the body of POST /user-plants. Omitted fields
// take the plant defaults.
type createUserPlantRequest struct {
	SpeciesID            string             `json:"species_id"`
	Nickname             string             `json:"nickname"`
	Location             *string            `json:"location"`
	PotSize              *plant.PotSize     `json:"pot_size"`
	PotMaterial          *plant.PotMaterial `json:"pot_material"`
	Notes                *string            `json:"notes"`
	CustomMoistureTarget *int               `json:"custom_moisture_target"`
	CustomMoistureMin    *int               `json:"custom_moisture_min"`
	AutoWateringEnabled  *bool              `json:"auto_watering_enabled"`
}

func (req createUserPlantRequest) toPlant(ownerID int64) plant.UserPlant {
	p := plant.NewUserPlant()
	p.UserID = ownerID
	p.SpeciesID = req.SpeciesID
	p.Nickname = req.Nickname
	p.Location = req.Location
	p.Notes = req.Notes
	p.CustomMoistureTarget = req.CustomMoistureTarget
	p.CustomMoistureMin = req.CustomMoistureMin
	if req.PotSize != nil {
		p.PotSize = *req.PotSize
	}
	if req.PotMaterial != nil {
		p.PotMaterial = *req.PotMaterial
	}
	if req.AutoWateringEnabled != nil {
		p.AutoWateringEnabled = *req.AutoWateringEnabled
	}
	return p
}

// userPlantListResponse is the body of GET /user-plants.
type userPlantListResponse struct {
	Plants []plant.UserPlant `json:"plants"`
	Total  int               `json:"total"`
	Skip   int               `json:"skip"`
	Limit  int               `json:"limit"`
}

// ownedPlant loads a plant by the path parameter name and checks that the
// caller owns it. On failure the response has been written.
func (s *Server) ownedPlant(w http.ResponseWriter, r *http.Request, param string) (*plant.UserPlant, bool) {
	id, err := pathID(r, param)
	if err != nil {
		writeBadRequest(w, err.Error())
		return nil, false
	}
	return s.ownedPlantByID(w, r, id)
}

func (s *Server) ownedPlantByID(w http.ResponseWriter, r *http.Request, id int64) (*plant.UserPlant, bool) {
	p, err := s.plants.GetByID(r.Context(), id)
	p, err = auth.RequireOwnership(userFromContext(r.Context()), p, err)
	if err != nil {
		s.writeAccessError(w, err, msgPlantNotFound, msgForbidden)
		return nil, false
	}
	return p, true
}

// handleListUserPlants returns the caller's plants.
func (s *Server) handleListUserPlants(w http.ResponseWriter, r *http.Request) {
	pg, err := queryPage(r, 100, 100)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	isActive, err := queryBool(r, "is_active")
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	owner := userFromContext(r.Context()).ID
	filter := plant.UserPlantFilter{IsActive: isActive, Skip: pg.Skip, Limit: pg.Limit}
	plants, err := s.plants.ListByOwner(r.Context(), owner, filter)
	if err != nil {
		s.logger.Error("listing user plants", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	total, err := s.plants.CountByOwner(r.Context(), owner, filter)
	if err != nil {
		s.logger.Error("counting user plants", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, userPlantListResponse{Plants: plants, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

// handleCreateUserPlant adds a plant of a catalog species for the caller.
func (s *Server) handleCreateUserPlant(w http.ResponseWriter, r *http.Request) {
	var req createUserPlantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	p := req.toPlant(userFromContext(r.Context()).ID)
	if err := plant.ValidateUserPlant(&p); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.plants.Create(r.Context(), &p); err != nil {
		if errors.Is(err, plant.ErrSpeciesNotFound) {
			writeNotFound(w, fmt.Sprintf("Plant species '%s' not found", p.SpeciesID))
			return
		}
		s.logger.Error("creating user plant", "species_id", p.SpeciesID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	s.logger.Info("user plant created", "plant_id", p.ID, "user_id", p.UserID)
	writeJSON(w, http.StatusCreated, p)
}

// handleGetUserPlant returns one of the caller's plants.
func (s *Server) handleGetUserPlant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPlant(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateUserPlant applies a partial update. PUT and PATCH share it.
func (s *Server) handleUpdateUserPlant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPlant(w, r, "id")
	if !ok {
		return
	}

	var patch plant.UserPlantPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	updated, err := s.plants.Update(r.Context(), p.ID, patch)
	if err != nil {
		s.writeAccessError(w, err, msgPlantNotFound, msgForbidden)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteUserPlant removes a plant with its sensors, events and alerts.
func (s *Server) handleDeleteUserPlant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPlant(w, r, "id")
	if !ok {
		return
	}

	if err := s.plants.Delete(r.Context(), p.ID); err != nil {
		s.writeAccessError(w, err, msgPlantNotFound, msgForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWaterUserPlant records a manual watering by setting last_watered.
func (s *Server) handleWaterUserPlant(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPlant(w, r, "id")
	if !ok {
		return
	}

	updated, err := s.plants.MarkWatered(r.Context(), p.ID, s.now().UTC().Truncate(time.Second))
	if err != nil {
		s.writeAccessError(w, err, msgPlantNotFound, msgForbidden)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
