package auth

import (
	"strings"
	"time"
)

// User is a human account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch is a partial update; nil fields are left unchanged.
// PasswordHash must already be hashed.
type UserPatch struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	IsActive     *bool
	IsSuperuser  *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.FullName == nil && p.PasswordHash == nil &&
		p.IsActive == nil && p.IsSuperuser == nil
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Device is the principal a sensor authenticates as.
// PlantID and OwnerID are zero-valued when the sensor is not paired.
type Device struct {
	SensorID  int64  `json:"sensor_id"`
	DeviceID  string `json:"device_id"`
	AuthToken string `json:"-"`
	PlantID   *int64 `json:"user_plant_id"`
	OwnerID   int64  `json:"owner_id"`
}

// Paired reports whether the device is attached to a plant.
func (d *Device) Paired() bool { return d.PlantID != nil }

// Owned is implemented by every resource RequireOwnership guards.
// An OwnerID of 0 means the resource has no owner.
type Owned interface {
	OwnerID() int64
}
