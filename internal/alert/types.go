package alert

import (
	"time"
)

// Type classifies an alert.
type Type string

// Alert types.
const (
	TypeLowMoisture    Type = "low_moisture"
	TypeHighMoisture   Type = "high_moisture"
	TypeSensorOffline  Type = "sensor_offline"
	TypeLowBattery     Type = "low_battery"
	TypeWateringFailed Type = "watering_failed"
	TypeGeneral        Type = "general"
)

// Alert is a message for one user, optionally about one of their plants.
type Alert struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	UserPlantID *int64         `json:"user_plant_id"`
	Type        Type           `json:"alert_type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	IsRead      bool           `json:"is_read"`
	ReadAt      *time.Time     `json:"read_at"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// OwnerID implements auth.Owned.
func (a *Alert) OwnerID() int64 { return a.UserID }

// Filter narrows a user's alert listing.
type Filter struct {
	IsRead *bool
	Skip   int
	Limit  int
}
