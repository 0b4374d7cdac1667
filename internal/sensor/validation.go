package sensor

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"time"
)

const (
	authTokenBytes = 32

	// maxClockSkew bounds how far in the future a device timestamp may be.
	maxClockSkew = 5 * time.Minute
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// GenerateAuthToken returns 32 random bytes, URL-safe base64 encoded.
func GenerateAuthToken() (string, error) {
	b := make([]byte, authTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating device token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Validate checks a registration.
func (r *Registration) Validate() error {
	if !deviceIDPattern.MatchString(r.DeviceID) {
		return fmt.Errorf("%w: device_id must be 1-64 characters of letters, digits, '.', '_', ':' or '-'", ErrInvalidSensor)
	}
	if r.UserPlantID == nil || *r.UserPlantID <= 0 {
		return fmt.Errorf("%w: user_plant_id is required", ErrInvalidSensor)
	}
	return nil
}

// Validate checks the fields a patch sets.
func (p *Patch) Validate() error {
	if p.BatteryLevel != nil && !inPercent(*p.BatteryLevel) {
		return fmt.Errorf("%w: battery_level must be between 0 and 100", ErrInvalidSensor)
	}
	return nil
}

// Validate checks a submission and resolves its timestamp against now.
// Device timestamps too far in the future are replaced by now.
func (s *Submission) Validate(now time.Time) (time.Time, error) {
	if s.MoisturePercent == nil {
		return time.Time{}, fmt.Errorf("%w: moisture_percent is required", ErrInvalidReading)
	}
	if !inPercent(*s.MoisturePercent) {
		return time.Time{}, fmt.Errorf("%w: moisture_percent must be between 0 and 100", ErrInvalidReading)
	}
	if s.HumidityPercent != nil && !inPercent(*s.HumidityPercent) {
		return time.Time{}, fmt.Errorf("%w: humidity_percent must be between 0 and 100", ErrInvalidReading)
	}
	if s.BatteryLevel != nil && !inPercent(*s.BatteryLevel) {
		return time.Time{}, fmt.Errorf("%w: battery_level must be between 0 and 100", ErrInvalidReading)
	}
	if s.LightLux != nil && *s.LightLux < 0 {
		return time.Time{}, fmt.Errorf("%w: light_lux must not be negative", ErrInvalidReading)
	}
	if s.BatteryVoltage != nil && *s.BatteryVoltage < 0 {
		return time.Time{}, fmt.Errorf("%w: battery_voltage must not be negative", ErrInvalidReading)
	}

	if s.Timestamp == nil || s.Timestamp.After(now.Add(maxClockSkew)) {
		return now, nil
	}
	return *s.Timestamp, nil
}

func inPercent(v float64) bool { return v >= 0 && v <= 100 }
