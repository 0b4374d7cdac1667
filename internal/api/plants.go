package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/forestos-core/internal/plant"
)

// minSearchLength is the shortest catalog search query accepted.
const minSearchLength = 2

// speciesView is a catalog entry as returned to clients. OwnedCount is
// present only for authenticated callers.
type speciesView struct {
	plant.Species
	OwnedCount *int `json:"owned_count,omitempty"`
}

// speciesListResponse is the body of GET /plants.
type speciesListResponse struct {
	Plants []speciesView `json:"plants"`
	Total  int           `json:"total"`
	Skip   int           `json:"skip"`
	Limit  int           `json:"limit"`
}

// handleListSpecies returns one page of the catalog, optionally filtered
// by light level and growth rate.
func (s *Server) handleListSpecies(w http.ResponseWriter, r *http.Request) {
	pg, err := queryPage(r, 100, 100)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	filter := plant.SpeciesFilter{
		LightLevel: r.URL.Query().Get("light_level"),
		GrowthRate: r.URL.Query().Get("growth_rate"),
		Skip:       pg.Skip,
		Limit:      pg.Limit,
	}
	if filter.LightLevel != "" && !plant.ValidLightLevel(filter.LightLevel) {
		writeValidationError(w, fmt.Sprintf("unknown light_level %q", filter.LightLevel))
		return
	}
	if filter.GrowthRate != "" && !plant.ValidGrowthRate(filter.GrowthRate) {
		writeValidationError(w, fmt.Sprintf("unknown growth_rate %q", filter.GrowthRate))
		return
	}

	species, err := s.catalog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing catalog", "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	total, err := s.catalog.Count(r.Context(), filter)
	if err != nil {
		s.logger.Error("counting catalog", "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	views, err := s.speciesViews(r, species)
	if err != nil {
		s.logger.Error("counting owned species", "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, speciesListResponse{Plants: views, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

// handleSearchSpecies matches q against scientific and common names.
func (s *Server) handleSearchSpecies(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < minSearchLength {
		writeValidationError(w, "q must be at least 2 characters")
		return
	}
	limit, err := queryInt(r, intRange{name: "limit", def: 20, min: 1, max: 100})
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	species, err := s.catalog.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("searching catalog", "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	s.writeSpeciesList(w, r, species)
}

// handleSpeciesByCareLevel lists species matching a care level.
func (s *Server) handleSpeciesByCareLevel(w http.ResponseWriter, r *http.Request) {
	level, err := plant.ParseCareLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeValidationError(w, "Invalid care level. Must be: easy, moderate, or difficult")
		return
	}
	limit, err := queryInt(r, intRange{name: "limit", def: 50, min: 1, max: 100})
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	species, err := s.catalog.ListByCareLevel(r.Context(), level, limit)
	if err != nil {
		s.logger.Error("listing catalog by care level", "level", level, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	s.writeSpeciesList(w, r, species)
}

// handleGetSpecies returns one catalog entry.
func (s *Server) handleGetSpecies(w http.ResponseWriter, r *http.Request) {
	speciesID := chi.URLParam(r, "species_id")
	species, err := s.catalog.GetBySpeciesID(r.Context(), speciesID)
	if err != nil {
		if errors.Is(err, plant.ErrSpeciesNotFound) {
			writeNotFound(w, fmt.Sprintf("Plant with species_id '%s' not found", speciesID))
			return
		}
		s.logger.Error("getting species", "species_id", speciesID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	views, err := s.speciesViews(r, []plant.Species{*species})
	if err != nil {
		s.logger.Error("counting owned species", "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, views[0])
}

// handleCreateSpecies adds a catalog entry.
func (s *Server) handleCreateSpecies(w http.ResponseWriter, r *http.Request) {
	var species plant.Species
	if err := decodeJSON(r, &species); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := plant.ValidateSpecies(&species); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.catalog.Create(r.Context(), &species); err != nil {
		if errors.Is(err, plant.ErrSpeciesExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict,
				fmt.Sprintf("Plant with species_id '%s' already exists", species.SpeciesID))
			return
		}
		s.logger.Error("creating species", "species_id", species.SpeciesID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	s.logger.Info("species created", "species_id", species.SpeciesID)
	writeJSON(w, http.StatusCreated, species)
}

// handleUpdateSpecies changes a catalog entry's description or image.
func (s *Server) handleUpdateSpecies(w http.ResponseWriter, r *http.Request) {
	speciesID := chi.URLParam(r, "species_id")

	var patch plant.SpeciesPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	species, err := s.catalog.Update(r.Context(), speciesID, patch)
	if err != nil {
		if errors.Is(err, plant.ErrSpeciesNotFound) {
			writeNotFound(w, fmt.Sprintf("Plant with species_id '%s' not found", speciesID))
			return
		}
		s.logger.Error("updating species", "species_id", speciesID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, species)
}

func (s *Server) writeSpeciesList(w http.ResponseWriter, r *http.Request, species []plant.Species) {
	views, err := s.speciesViews(r, species)
	if err != nil {
		s.logger.Error("counting owned species", "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// speciesViews attaches the caller's owned counts when a user is present.
func (s *Server) speciesViews(r *http.Request, species []plant.Species) ([]speciesView, error) {
	views := make([]speciesView, len(species))
	for i := range species {
		views[i].Species = species[i]
	}

	user := userFromContext(r.Context())
	if user == nil {
		return views, nil
	}
	counts, err := s.plants.SpeciesCounts(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	for i := range views {
		n := counts[views[i].SpeciesID]
		views[i].OwnedCount = &n
	}
	return views, nil
}
