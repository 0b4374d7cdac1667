package plant

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// LightLevel is the light a species needs.
type LightLevel string

// Light levels.
const (
	LightLow            LightLevel = "low"
	LightMedium         LightLevel = "medium"
	LightBrightIndirect LightLevel = "bright_indirect"
	LightBrightDirect   LightLevel = "bright_direct"
)

// GrowthRate is how fast a species grows.
type GrowthRate string

// Growth rates.
const (
	GrowthSlow   GrowthRate = "slow"
	GrowthMedium GrowthRate = "medium"
	GrowthFast   GrowthRate = "fast"
)

// CareLevel groups species by how demanding they are.
type CareLevel string

// Care levels.
const (
	CareEasy      CareLevel = "easy"
	CareModerate  CareLevel = "moderate"
	CareDifficult CareLevel = "difficult"
)

// Catalog defaults.
const (
	DefaultMoistureTargetPct = 40
	DefaultMoistureMinPct    = 25
)

// Species is a catalog entry.
type Species struct {
	ID                    int64          `json:"id" yaml:"-"`
	SpeciesID             string         `json:"species_id" yaml:"species_id"`
	CommonNames           []string       `json:"common_names" yaml:"common_names"`
	ScientificName        string         `json:"scientific_name" yaml:"scientific_name"`
	Family                *string        `json:"family" yaml:"family"`
	WaterFrequencyDaysMin *int           `json:"water_frequency_days_min" yaml:"water_frequency_days_min"`
	WaterFrequencyDaysMax *int           `json:"water_frequency_days_max" yaml:"water_frequency_days_max"`
	SoilMoistureTargetPct int            `json:"soil_moisture_target_pct" yaml:"soil_moisture_target_pct"`
	SoilMoistureMinPct    int            `json:"soil_moisture_min_pct" yaml:"soil_moisture_min_pct"`
	DrainageRequired      bool           `json:"drainage_required" yaml:"drainage_required"`
	LightLevel            *LightLevel    `json:"light_level" yaml:"light_level"`
	MinLux                *int           `json:"min_lux" yaml:"min_lux"`
	OptimalLuxMin         *int           `json:"optimal_lux_min" yaml:"optimal_lux_min"`
	OptimalLuxMax         *int           `json:"optimal_lux_max" yaml:"optimal_lux_max"`
	TempCelsiusMin        *int           `json:"temp_celsius_min" yaml:"temp_celsius_min"`
	TempCelsiusOptimalMin *int           `json:"temp_celsius_optimal_min" yaml:"temp_celsius_optimal_min"`
	TempCelsiusOptimalMax *int           `json:"temp_celsius_optimal_max" yaml:"temp_celsius_optimal_max"`
	TempCelsiusMax        *int           `json:"temp_celsius_max" yaml:"temp_celsius_max"`
	HumidityPctMin        *int           `json:"humidity_pct_min" yaml:"humidity_pct_min"`
	HumidityPctOptimalMin *int           `json:"humidity_pct_optimal_min" yaml:"humidity_pct_optimal_min"`
	HumidityPctOptimalMax *int           `json:"humidity_pct_optimal_max" yaml:"humidity_pct_optimal_max"`
	GrowthRate            *GrowthRate    `json:"growth_rate" yaml:"growth_rate"`
	ToxicityPets          *string        `json:"toxicity_pets" yaml:"toxicity_pets"`
	ToxicityHumans        *string        `json:"toxicity_humans" yaml:"toxicity_humans"`
	HealthIndicators      map[string]any `json:"health_indicators" yaml:"health_indicators"`
	Description           *string        `json:"description" yaml:"description"`
	ImageURL              *string        `json:"image_url" yaml:"image_url"`
	CreatedAt             time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt             time.Time      `json:"updated_at" yaml:"-"`
}

// NewSpecies returns a Species with the catalog defaults filled in.
func NewSpecies() Species {
	return Species{
		CommonNames:           []string{},
		SoilMoistureTargetPct: DefaultMoistureTargetPct,
		SoilMoistureMinPct:    DefaultMoistureMinPct,
		DrainageRequired:      true,
	}
}

// UnmarshalJSON decodes over the catalog defaults so omitted fields keep them.
func (s *Species) UnmarshalJSON(data []byte) error {
	type plain Species
	p := plain(NewSpecies())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Species(p)
	return nil
}

// UnmarshalYAML decodes over the catalog defaults so omitted fields keep them.
func (s *Species) UnmarshalYAML(node *yaml.Node) error {
	type plain Species
	p := plain(NewSpecies())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Species(p)
	return nil
}

// SpeciesPatch updates the editable catalog fields.
type SpeciesPatch struct {
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// SpeciesFilter narrows catalog listings. Empty strings match everything.
type SpeciesFilter struct {
	LightLevel string
	GrowthRate string
	Skip       int
	Limit      int
}

// PotSize is the size of a plant's pot.
type PotSize string

// Pot sizes.
const (
	PotSmall  PotSize = "small"
	PotMedium PotSize = "medium"
	PotLarge  PotSize = "large"
	PotXLarge PotSize = "xlarge"
)

// PotMaterial is what a pot is made of.
type PotMaterial string

// Pot materials.
const (
	MaterialTerracotta    PotMaterial = "terracotta"
	MaterialPlastic       PotMaterial = "plastic"
	MaterialCeramicGlazed PotMaterial = "ceramic_glazed"
	MaterialFabric        PotMaterial = "fabric"
	MaterialOther         PotMaterial = "other"
)

// UserPlant is a plant a user owns.
type UserPlant struct {
	ID                   int64       `json:"id"`
	UserID               int64       `json:"user_id"`
	SpeciesID            string      `json:"species_id"`
	Nickname             string      `json:"nickname"`
	Location             *string     `json:"location"`
	PotSize              PotSize     `json:"pot_size"`
	PotMaterial          PotMaterial `json:"pot_material"`
	Notes                *string     `json:"notes"`
	IsActive             bool        `json:"is_active"`
	LastWatered          *time.Time  `json:"last_watered"`
	CustomMoistureTarget *int        `json:"custom_moisture_target"`
	CustomMoistureMin    *int        `json:"custom_moisture_min"`
	AutoWateringEnabled  bool        `json:"auto_watering_enabled"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// OwnerID implements auth.Owned.
func (p *UserPlant) OwnerID() int64 { return p.UserID }

// NewUserPlant returns a UserPlant with the creation defaults filled in.
func NewUserPlant() UserPlant {
	return UserPlant{
		PotSize:             PotMedium,
		PotMaterial:         MaterialPlastic,
		IsActive:            true,
		AutoWateringEnabled: true,
	}
}

// UserPlantPatch is a partial update; nil fields are left unchanged.
type UserPlantPatch struct {
	Nickname             *string      `json:"nickname"`
	Location             *string      `json:"location"`
	PotSize              *PotSize     `json:"pot_size"`
	PotMaterial          *PotMaterial `json:"pot_material"`
	Notes                *string      `json:"notes"`
	IsActive             *bool        `json:"is_active"`
	LastWatered          *time.Time   `json:"last_watered"`
	CustomMoistureTarget *int         `json:"custom_moisture_target"`
	CustomMoistureMin    *int         `json:"custom_moisture_min"`
	AutoWateringEnabled  *bool        `json:"auto_watering_enabled"`
}

// UserPlantFilter narrows a user's plant listing.
type UserPlantFilter struct {
	IsActive *bool
	Skip     int
	Limit    int
}

// CareProfile is a plant with the moisture thresholds that apply to it.
type CareProfile struct {
	PlantID        int64
	OwnerID        int64
	Nickname       string
	MoistureMin    int
	MoistureTarget int
}
