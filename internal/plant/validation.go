package plant

import (
	"fmt"
	"slices"
	"strings"
)

const (
	maxNicknameLength  = 100
	maxSpeciesIDLength = 100
)

var (
	validLightLevels  = []LightLevel{LightLow, LightMedium, LightBrightIndirect, LightBrightDirect}
	validGrowthRates  = []GrowthRate{GrowthSlow, GrowthMedium, GrowthFast}
	validPotSizes     = []PotSize{PotSmall, PotMedium, PotLarge, PotXLarge}
	validPotMaterials = []PotMaterial{MaterialTerracotta, MaterialPlastic, MaterialCeramicGlazed, MaterialFabric, MaterialOther}
	validCareLevels   = []CareLevel{CareEasy, CareModerate, CareDifficult}
)

// ParseCareLevel validates a care level path parameter.
func ParseCareLevel(s string) (CareLevel, error) {
	level := CareLevel(s)
	if !slices.Contains(validCareLevels, level) {
		return "", fmt.Errorf("%w: %q (want easy, moderate or difficult)", ErrInvalidCareLevel, s)
	}
	return level, nil
}

// ValidLightLevel reports whether s names a light level.
func ValidLightLevel(s string) bool { return slices.Contains(validLightLevels, LightLevel(s)) }

// ValidGrowthRate reports whether s names a growth rate.
func ValidGrowthRate(s string) bool { return slices.Contains(validGrowthRates, GrowthRate(s)) }

// ValidateSpecies checks a catalog entry before it is stored.
func ValidateSpecies(s *Species) error {
	if id := strings.TrimSpace(s.SpeciesID); id == "" || len(id) > maxSpeciesIDLength {
		return fmt.Errorf("%w: species_id must be 1-%d characters", ErrInvalidPlant, maxSpeciesIDLength)
	}
	if strings.TrimSpace(s.ScientificName) == "" {
		return fmt.Errorf("%w: scientific_name is required", ErrInvalidPlant)
	}
	if s.LightLevel != nil && !slices.Contains(validLightLevels, *s.LightLevel) {
		return fmt.Errorf("%w: unknown light_level %q", ErrInvalidPlant, *s.LightLevel)
	}
	if s.GrowthRate != nil && !slices.Contains(validGrowthRates, *s.GrowthRate) {
		return fmt.Errorf("%w: unknown growth_rate %q", ErrInvalidPlant, *s.GrowthRate)
	}
	if err := checkPercent("soil_moisture_target_pct", &s.SoilMoistureTargetPct); err != nil {
		return err
	}
	if err := checkPercent("soil_moisture_min_pct", &s.SoilMoistureMinPct); err != nil {
		return err
	}
	if s.WaterFrequencyDaysMin != nil && s.WaterFrequencyDaysMax != nil &&
		*s.WaterFrequencyDaysMin > *s.WaterFrequencyDaysMax {
		return fmt.Errorf("%w: water_frequency_days_min exceeds max", ErrInvalidPlant)
	}
	return nil
}

// ValidateUserPlant checks a plant before it is created.
func ValidateUserPlant(p *UserPlant) error {
	if err := checkNickname(p.Nickname); err != nil {
		return err
	}
	if p.SpeciesID == "" {
		return fmt.Errorf("%w: species_id is required", ErrInvalidPlant)
	}
	if !slices.Contains(validPotSizes, p.PotSize) {
		return fmt.Errorf("%w: unknown pot_size %q", ErrInvalidPlant, p.PotSize)
	}
	if !slices.Contains(validPotMaterials, p.PotMaterial) {
		return fmt.Errorf("%w: unknown pot_material %q", ErrInvalidPlant, p.PotMaterial)
	}
	if err := checkPercent("custom_moisture_target", p.CustomMoistureTarget); err != nil {
		return err
	}
	return checkPercent("custom_moisture_min", p.CustomMoistureMin)
}

// Validate checks the fields a patch sets.
func (p *UserPlantPatch) Validate() error {
	if p.Nickname != nil {
		if err := checkNickname(*p.Nickname); err != nil {
			return err
		}
	}
	if p.PotSize != nil && !slices.Contains(validPotSizes, *p.PotSize) {
		return fmt.Errorf("%w: unknown pot_size %q", ErrInvalidPlant, *p.PotSize)
	}
	if p.PotMaterial != nil && !slices.Contains(validPotMaterials, *p.PotMaterial) {
		return fmt.Errorf("%w: unknown pot_material %q", ErrInvalidPlant, *p.PotMaterial)
	}
	if err := checkPercent("custom_moisture_target", p.CustomMoistureTarget); err != nil {
		return err
	}
	return checkPercent("custom_moisture_min", p.CustomMoistureMin)
}

func checkNickname(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: nickname is required", ErrInvalidPlant)
	}
	if len(name) > maxNicknameLength {
		return fmt.Errorf("%w: nickname exceeds %d characters", ErrInvalidPlant, maxNicknameLength)
	}
	return nil
}

func checkPercent(field string, v *int) error {
	if v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidPlant, field)
	}
	return nil
}
