package plant

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

func TestCatalogRepository_CreateAndGet(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))
	ctx := t.Context()

	s := NewSpecies()
	s.SpeciesID = "monstera"
	s.ScientificName = "Monstera deliciosa"
	s.CommonNames = []string{"Swiss Cheese Plant"}
	s.Family = ptr("Araceae")
	s.GrowthRate = ptr(GrowthFast)
	s.HealthIndicators = map[string]any{"brown_tips": "low humidity"}
	if err := repo.Create(ctx, &s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == 0 {
		t.Fatal("Create() did not assign an id")
	}

	got, err := repo.GetBySpeciesID(ctx, "monstera")
	if err != nil {
		t.Fatalf("GetBySpeciesID() error = %v", err)
	}
	if got.ScientificName != "Monstera deliciosa" || len(got.CommonNames) != 1 {
		t.Errorf("GetBySpeciesID() = %+v", got)
	}
	if got.SoilMoistureTargetPct != DefaultMoistureTargetPct || got.SoilMoistureMinPct != DefaultMoistureMinPct || !got.DrainageRequired {
		t.Errorf("defaults not stored: target %d min %d drainage %v",
			got.SoilMoistureTargetPct, got.SoilMoistureMinPct, got.DrainageRequired)
	}
	if got.Family == nil || *got.Family != "Araceae" {
		t.Errorf("Family = %v", got.Family)
	}
	if got.GrowthRate == nil || *got.GrowthRate != GrowthFast {
		t.Errorf("GrowthRate = %v", got.GrowthRate)
	}
	if got.LightLevel != nil {
		t.Errorf("LightLevel = %v, want nil", *got.LightLevel)
	}
	if got.HealthIndicators["brown_tips"] != "low humidity" {
		t.Errorf("HealthIndicators = %v", got.HealthIndicators)
	}

	if err := repo.Create(ctx, &s); !errors.Is(err, ErrSpeciesExists) {
		t.Errorf("Create(duplicate) error = %v, want ErrSpeciesExists", err)
	}
}

func TestCatalogRepository_NotFound(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))

	_, err := repo.GetBySpeciesID(t.Context(), "nope")
	if !errors.Is(err, ErrSpeciesNotFound) || !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetBySpeciesID() error = %v, want ErrSpeciesNotFound", err)
	}
	if _, err := repo.Update(t.Context(), "nope", SpeciesPatch{Description: ptr("x")}); !errors.Is(err, ErrSpeciesNotFound) {
		t.Errorf("Update() error = %v, want ErrSpeciesNotFound", err)
	}
}

func TestCatalogRepository_ListAndCount(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))
	ctx := t.Context()
	seedSpecies(t, repo, "a", "Alpha", LightLow, 14)
	seedSpecies(t, repo, "b", "Beta", LightMedium, 7)
	seedSpecies(t, repo, "c", "Gamma", LightLow, 12)

	all, err := repo.List(ctx, SpeciesFilter{Limit: 100})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d, want 3", len(all))
	}

	low := SpeciesFilter{LightLevel: "low", Skip: 1, Limit: 10}
	page, err := repo.List(ctx, low)
	if err != nil {
		t.Fatalf("List(low) error = %v", err)
	}
	if len(page) != 1 || page[0].SpeciesID != "c" {
		t.Errorf("List(low, skip 1) = %+v, want [c]", page)
	}
	n, err := repo.Count(ctx, low)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count(low) = %d, want 2", n)
	}
}

func TestCatalogRepository_Search(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))
	ctx := t.Context()
	seedSpecies(t, repo, "snake", "Dracaena trifasciata", LightLow, 21, "Snake Plant", "Mother-in-law's Tongue")
	seedSpecies(t, repo, "pothos", "Epipremnum aureum", LightMedium, 10, "Golden Pothos")
	seedSpecies(t, repo, "pct", "Percent_ia", LightMedium, 10)

	tests := []struct {
		q    string
		want []string
	}{
		{"dracaena", []string{"snake"}},
		{"TONGUE", []string{"snake"}},
		{"pothos", []string{"pothos"}},
		{"au", []string{"pothos"}},
		{"t_", []string{"pct"}},
		{"zz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.q, 20)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) returned %d, want %d", tt.q, len(got), len(tt.want))
			}
			for i, s := range got {
				if s.SpeciesID != tt.want[i] {
					t.Errorf("Search(%q)[%d] = %s, want %s", tt.q, i, s.SpeciesID, tt.want[i])
				}
			}
		})
	}
}

func TestCatalogRepository_ListByCareLevel(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))
	ctx := t.Context()
	seedSpecies(t, repo, "easy", "E", LightLow, 14)
	seedSpecies(t, repo, "moderate", "M", LightBrightIndirect, 7)
	seedSpecies(t, repo, "thirsty", "T", LightMedium, 3)
	seedSpecies(t, repo, "sunny", "S", LightBrightDirect, 12)

	tests := map[CareLevel][]string{
		CareEasy:      {"easy"},
		CareModerate:  {"moderate"},
		CareDifficult: {"thirsty", "sunny"},
	}
	for level, want := range tests {
		got, err := repo.ListByCareLevel(ctx, level, 50)
		if err != nil {
			t.Fatalf("ListByCareLevel(%s) error = %v", level, err)
		}
		if len(got) != len(want) {
			t.Fatalf("ListByCareLevel(%s) returned %d, want %d", level, len(got), len(want))
		}
		for i := range want {
			if got[i].SpeciesID != want[i] {
				t.Errorf("ListByCareLevel(%s)[%d] = %s, want %s", level, i, got[i].SpeciesID, want[i])
			}
		}
	}

	if _, err := repo.ListByCareLevel(ctx, "expert", 50); !errors.Is(err, ErrInvalidCareLevel) {
		t.Errorf("ListByCareLevel(expert) error = %v, want ErrInvalidCareLevel", err)
	}
}

func TestCatalogRepository_Update(t *testing.T) {
	repo := NewCatalogRepository(testDB(t))
	seedSpecies(t, repo, "fern", "Nephrolepis exaltata", LightMedium, 4)

	got, err := repo.Update(t.Context(), "fern", SpeciesPatch{Description: ptr("Likes humidity")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Description == nil || *got.Description != "Likes humidity" {
		t.Errorf("Description = %v", got.Description)
	}
	if got.ImageURL != nil {
		t.Errorf("ImageURL = %v, want unchanged nil", *got.ImageURL)
	}
}

func TestSpecies_UnmarshalJSONKeepsDefaults(t *testing.T) {
	var s Species
	if err := json.Unmarshal([]byte(`{"species_id":"x","scientific_name":"X","soil_moisture_min_pct":10}`), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.SoilMoistureTargetPct != DefaultMoistureTargetPct || s.SoilMoistureMinPct != 10 || !s.DrainageRequired {
		t.Errorf("decoded = target %d min %d drainage %v", s.SoilMoistureTargetPct, s.SoilMoistureMinPct, s.DrainageRequired)
	}
}
