package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/sensor"
)

const (
	msgSensorNotFound = "Sensor not found"
	msgDeviceTaken    = "Device ID already registered"
	msgNoReadings     = "No readings found for this sensor"

	// defaultBatteryLevel is what a freshly registered sensor reports.
	defaultBatteryLevel = 100.0
)

// sensorListResponse is the body of GET /sensors.
type sensorListResponse struct {
	Sensors []sensor.Sensor `json:"sensors"`
	Total   int             `json:"total"`
	Skip    int             `json:"skip"`
	Limit   int             `json:"limit"`
}

// readingListResponse is the body of GET /sensors/{device_id}/readings.
type readingListResponse struct {
	Readings []sensor.Reading `json:"readings"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// ownedSensor loads the sensor named in the path and checks that the caller
// owns the plant it is paired with. On failure the response has been written.
func (s *Server) ownedSensor(w http.ResponseWriter, r *http.Request) (*sensor.Sensor, bool) {
	sn, err := s.sensors.GetByDeviceID(r.Context(), chi.URLParam(r, "device_id"))
	sn, err = auth.RequireOwnership(userFromContext(r.Context()), sn, err)
	if err != nil {
		s.writeAccessError(w, err, msgSensorNotFound, msgForbidden)
		return nil, false
	}
	return sn, true
}

// handleCreateSensor registers a device and returns its token once.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var reg sensor.Registration
	if err := decodeJSON(r, &reg); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := reg.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	p, ok := s.ownedPlantByID(w, r, *reg.UserPlantID)
	if !ok {
		return
	}

	token, err := sensor.GenerateAuthToken()
	if err != nil {
		s.logger.Error("generating device token", "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	battery := defaultBatteryLevel
	now := s.now().UTC().Truncate(time.Second)
	sn := &sensor.Sensor{
		DeviceID:         reg.DeviceID,
		HardwareVersion:  reg.HardwareVersion,
		FirmwareVersion:  reg.FirmwareVersion,
		AuthToken:        token,
		UserPlantID:      reg.UserPlantID,
		IsOnline:         true,
		BatteryLevel:     &battery,
		LastSeen:         &now,
		MoistureDryValue: reg.MoistureDryValue,
		MoistureWetValue: reg.MoistureWetValue,
		Owner:            p.UserID,
	}
	if err := s.sensors.Create(r.Context(), sn); err != nil {
		if errors.Is(err, sensor.ErrDeviceExists) {
			writeBadRequest(w, msgDeviceTaken)
			return
		}
		s.writeAccessError(w, err, msgPlantNotFound, msgForbidden)
		return
	}

	s.logger.Info("sensor registered", "device_id", sn.DeviceID, "user_plant_id", sn.UserPlantID)
	writeJSON(w, http.StatusCreated, sn)
}

// handleListSensors returns sensors paired with the caller's plants.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	pg, err := queryPage(r, 100, 100)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	owner := userFromContext(r.Context()).ID
	sensors, err := s.sensors.ListByOwner(r.Context(), owner, pg.Skip, pg.Limit)
	if err != nil {
		s.logger.Error("listing sensors", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	total, err := s.sensors.CountByOwner(r.Context(), owner)
	if err != nil {
		s.logger.Error("counting sensors", "user_id", owner, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	for i := range sensors {
		sensors[i] = sensors[i].Redacted()
	}
	writeJSON(w, http.StatusOK, sensorListResponse{Sensors: sensors, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

// handleGetSensor returns one of the caller's sensors without its token.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.ownedSensor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sn.Redacted())
}

// handleUpdateSensor applies a partial update. Moving the sensor to another
// plant requires owning that plant too.
func (s *Server) handleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.ownedSensor(w, r)
	if !ok {
		return
	}

	var patch sensor.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if patch.UserPlantID != nil {
		if _, ok := s.ownedPlantByID(w, r, *patch.UserPlantID); !ok {
			return
		}
	}

	updated, err := s.sensors.Update(r.Context(), sn.ID, patch)
	if err != nil {
		s.writeAccessError(w, err, msgSensorNotFound, msgForbidden)
		return
	}
	writeJSON(w, http.StatusOK, updated.Redacted())
}

// handleDeleteSensor removes a sensor and its readings.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.ownedSensor(w, r)
	if !ok {
		return
	}

	if err := s.sensors.Delete(r.Context(), sn.ID); err != nil {
		s.writeAccessError(w, err, msgSensorNotFound, msgForbidden)
		return
	}
	s.logger.Info("sensor deleted", "device_id", sn.DeviceID)
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmitReading accepts a reading from a device authenticated by its
// own bearer token.
func (s *Server) handleSubmitReading(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")
	device, err := s.gate.ResolveDevice(r.Context(), deviceID, r.Header.Get("Authorization"))
	if err != nil {
		if auth.KindOf(err) != 0 {
			s.metrics.readings.WithLabelValues(resultRejected).Inc()
			s.logger.Warn("device authentication failed", "device_id", deviceID, "reason", auth.KindOf(err))
		}
		s.writeAccessError(w, err, "", "")
		return
	}

	var sub sensor.Submission
	if err := decodeJSON(r, &sub); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reading, err := s.readings.Submit(r.Context(), device, sub)
	if err != nil {
		if errors.Is(err, sensor.ErrInvalidReading) {
			s.metrics.readings.WithLabelValues(resultRejected).Inc()
			writeValidationError(w, err.Error())
			return
		}
		s.metrics.readings.WithLabelValues(resultFailure).Inc()
		s.logger.Error("submitting reading", "device_id", deviceID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	s.metrics.readings.WithLabelValues(resultSuccess).Inc()
	writeJSON(w, http.StatusCreated, reading)
}

// handleListReadings returns the sensor's readings from the last hours hours,
// newest first.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.ownedSensor(w, r)
	if !ok {
		return
	}
	pg, err := queryPage(r, 100, 1000)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	hours, err := queryInt(r, intRange{name: "hours", def: 24, min: 1, max: 168})
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	since := s.now().UTC().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.sensors.ListReadings(r.Context(), sn.ID, since, pg.Skip, pg.Limit)
	if err != nil {
		s.logger.Error("listing readings", "device_id", sn.DeviceID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	total, err := s.sensors.CountReadings(r.Context(), sn.ID, since)
	if err != nil {
		s.logger.Error("counting readings", "device_id", sn.DeviceID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, readingListResponse{Readings: readings, Total: total, Skip: pg.Skip, Limit: pg.Limit})
}

// handleLatestReading returns the sensor's most recent reading.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	sn, ok := s.ownedSensor(w, r)
	if !ok {
		return
	}

	reading, err := s.sensors.LatestReading(r.Context(), sn.ID)
	if err != nil {
		if errors.Is(err, sensor.ErrNoReadings) {
			writeNotFound(w, msgNoReadings)
			return
		}
		s.logger.Error("getting latest reading", "device_id", sn.DeviceID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}
