package sensor

import (
	"time"
)

// Sensor is a registered soil sensor.
type Sensor struct {
	ID               int64      `json:"id"`
	DeviceID         string     `json:"device_id"`
	HardwareVersion  *string    `json:"hardware_version"`
	FirmwareVersion  *string    `json:"firmware_version"`
	AuthToken        string     `json:"auth_token,omitempty"`
	UserPlantID      *int64     `json:"user_plant_id"`
	IsOnline         bool       `json:"is_online"`
	BatteryLevel     *float64   `json:"battery_level"`
	LastSeen         *time.Time `json:"last_seen"`
	MoistureDryValue *int       `json:"moisture_dry_value"`
	MoistureWetValue *int       `json:"moisture_wet_value"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Owner is the owner of the paired plant, 0 when unpaired.
	Owner int64 `json:"-"`
}

// OwnerID implements auth.Owned.
func (s *Sensor) OwnerID() int64 { return s.Owner }

// Redacted returns a copy without the device token.
func (s Sensor) Redacted() Sensor {
	s.AuthToken = ""
	return s
}

// Registration is the input for registering a sensor.
type Registration struct {
	DeviceID         string  `json:"device_id"`
	HardwareVersion  *string `json:"hardware_version"`
	FirmwareVersion  *string `json:"firmware_version"`
	UserPlantID      *int64  `json:"user_plant_id"`
	MoistureDryValue *int    `json:"moisture_dry_value"`
	MoistureWetValue *int    `json:"moisture_wet_value"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	IsOnline         *bool      `json:"is_online"`
	BatteryLevel     *float64   `json:"battery_level"`
	LastSeen         *time.Time `json:"last_seen"`
	UserPlantID      *int64     `json:"user_plant_id"`
	FirmwareVersion  *string    `json:"firmware_version"`
	MoistureDryValue *int       `json:"moisture_dry_value"`
	MoistureWetValue *int       `json:"moisture_wet_value"`
}

// Reading is one stored measurement.
type Reading struct {
	ID                 int64     `json:"id"`
	SensorID           int64     `json:"sensor_id"`
	MoisturePct        float64   `json:"moisture_pct"`
	TemperatureCelsius *float64  `json:"temperature_celsius"`
	HumidityPct        *float64  `json:"humidity_pct"`
	LightLux           *int64    `json:"light_lux"`
	BatteryVoltage     *float64  `json:"battery_voltage"`
	Timestamp          time.Time `json:"timestamp"`
}

// Submission is what a device reports. BatteryLevel updates the sensor,
// the rest is stored on the reading.
type Submission struct {
	MoisturePercent    *float64   `json:"moisture_percent"`
	TemperatureCelsius *float64   `json:"temperature_celsius"`
	HumidityPercent    *float64   `json:"humidity_percent"`
	LightLux           *int64     `json:"light_lux"`
	BatteryLevel       *float64   `json:"battery_level"`
	BatteryVoltage     *float64   `json:"battery_voltage"`
	Timestamp          *time.Time `json:"timestamp"`
}
