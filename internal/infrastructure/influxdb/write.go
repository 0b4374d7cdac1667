package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSensorReading = "sensor_reading"
	MeasurementWatering      = "watering_event"
)

// SensorReading is the time-series shape of a stored sensor reading.
// Optional values are omitted from the point when nil.
type SensorReading struct {
	DeviceID       string
	PlantID        *int64
	MoisturePct    float64
	TemperatureC   *float64
	HumidityPct    *float64
	LightLux       *int64
	BatteryVoltage *float64
	BatteryLevel   *float64
	Timestamp      time.Time
}

// WateringEvent is the time-series shape of a watering event state change.
type WateringEvent struct {
	EventID         int64
	PlantID         int64
	Trigger         string
	Status          string
	WaterML         *float64
	DurationSeconds *int64
	Timestamp       time.Time
}

// WriteSensorReading queues a reading point tagged by device and plant.
func (c *Client) WriteSensorReading(r SensorReading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sensorReadingPoint(r))
}

// WriteWateringEvent queues a watering point tagged by plant, trigger and status.
func (c *Client) WriteWateringEvent(e WateringEvent) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(wateringEventPoint(e))
}

func sensorReadingPoint(r SensorReading) *write.Point {
	tags := map[string]string{"device_id": r.DeviceID}
	if r.PlantID != nil {
		tags["plant_id"] = strconv.FormatInt(*r.PlantID, 10)
	}

	fields := map[string]any{"moisture_pct": r.MoisturePct}
	if r.TemperatureC != nil {
		fields["temperature_celsius"] = *r.TemperatureC
	}
	if r.HumidityPct != nil {
		fields["humidity_pct"] = *r.HumidityPct
	}
	if r.LightLux != nil {
		fields["light_lux"] = *r.LightLux
	}
	if r.BatteryVoltage != nil {
		fields["battery_voltage"] = *r.BatteryVoltage
	}
	if r.BatteryLevel != nil {
		fields["battery_level"] = *r.BatteryLevel
	}

	return write.NewPoint(MeasurementSensorReading, tags, fields, pointTime(r.Timestamp))
}

func wateringEventPoint(e WateringEvent) *write.Point {
	tags := map[string]string{
		"plant_id": strconv.FormatInt(e.PlantID, 10),
		"trigger":  e.Trigger,
		"status":   e.Status,
	}

	fields := map[string]any{"event_id": e.EventID}
	if e.WaterML != nil {
		fields["water_ml"] = *e.WaterML
	}
	if e.DurationSeconds != nil {
		fields["duration_seconds"] = *e.DurationSeconds
	}

	return write.NewPoint(MeasurementWatering, tags, fields, pointTime(e.Timestamp))
}

func pointTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
