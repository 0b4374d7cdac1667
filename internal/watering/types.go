package watering

import (
	"time"
)

// Trigger says what started a watering.
type Trigger string

// Triggers.
const (
	TriggerManual    Trigger = "manual"
	TriggerAutomatic Trigger = "automatic"
	TriggerScheduled Trigger = "scheduled"
)

// AllTriggers lists every trigger in display order.
var AllTriggers = []Trigger{TriggerManual, TriggerAutomatic, TriggerScheduled}

// Status is the lifecycle state of a watering event.
type Status string

// Statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Event is one watering of a plant.
type Event struct {
	ID                int64      `json:"id"`
	PlantID           int64      `json:"plant_id"`
	Trigger           Trigger    `json:"trigger"`
	Status            Status     `json:"status"`
	ScheduledTime     time.Time  `json:"scheduled_time"`
	CompletedTime     *time.Time `json:"completed_time"`
	WaterML           *float64   `json:"water_ml"`
	DurationSeconds   *int64     `json:"duration_seconds"`
	MoistureBeforePct *float64   `json:"moisture_before_pct"`
	MoistureAfterPct  *float64   `json:"moisture_after_pct"`
	Notes             *string    `json:"notes"`
	ErrorMessage      *string    `json:"error_message"`

	// Owner is the owner of the watered plant.
	Owner int64 `json:"-"`
}

// OwnerID implements auth.Owned.
func (e *Event) OwnerID() int64 { return e.Owner }

// EventPatch is a partial update; nil fields are left unchanged.
type EventPatch struct {
	Status            *Status    `json:"status"`
	CompletedTime     *time.Time `json:"completed_time"`
	WaterML           *float64   `json:"water_ml"`
	DurationSeconds   *int64     `json:"duration_seconds"`
	MoistureBeforePct *float64   `json:"moisture_before_pct"`
	MoistureAfterPct  *float64   `json:"moisture_after_pct"`
	Notes             *string    `json:"notes"`
	ErrorMessage      *string    `json:"error_message"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p == EventPatch{}
}

// Statistics summarises completed waterings over a period.
type Statistics struct {
	PlantID             int64           `json:"plant_id"`
	PeriodDays          int             `json:"period_days"`
	TotalEvents         int             `json:"total_events"`
	TotalWaterML        float64         `json:"total_water_ml"`
	AverageIntervalDays *float64        `json:"average_interval_days"`
	TriggerCounts       map[Trigger]int `json:"trigger_counts"`
	LastWatered         *time.Time      `json:"last_watered"`
}

// Command is the MQTT payload sent to a pump controller.
type Command struct {
	EventID int64    `json:"event_id"`
	PlantID int64    `json:"plant_id"`
	Trigger Trigger  `json:"trigger"`
	WaterML *float64 `json:"water_ml,omitempty"`
}

// StatusReport is the MQTT payload a pump controller sends back.
type StatusReport struct {
	EventID int64 `json:"event_id"`
	EventPatch
}
