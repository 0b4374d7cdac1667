package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes for the ForestOS MQTT hierarchy.
const (
	TopicPrefix         = "forestos"
	TopicPrefixSensors  = "forestos/sensors"
	TopicPrefixWatering = "forestos/watering"
	TopicPrefixSystem   = "forestos/system"
)

// Topics provides builders for ForestOS MQTT topics.
//
//	topic := mqtt.Topics{}.SensorReadings("SENSOR_001")
//	// forestos/sensors/SENSOR_001/readings
type Topics struct{}

// SensorReadings is where a sensor publishes telemetry.
//
// Example: forestos/sensors/SENSOR_001/readings
func (Topics) SensorReadings(deviceID string) string {
	return fmt.Sprintf("%s/%s/readings", TopicPrefixSensors, deviceID)
}

// WateringCommand is where Core publishes watering requests for a plant's pump.
//
// Example: forestos/watering/42/command
func (Topics) WateringCommand(plantID int64) string {
	return fmt.Sprintf("%s/%d/command", TopicPrefixWatering, plantID)
}

// WateringStatus is where a pump controller reports watering progress.
//
// Example: forestos/watering/42/status
func (Topics) WateringStatus(plantID int64) string {
	return fmt.Sprintf("%s/%d/status", TopicPrefixWatering, plantID)
}

// SystemStatus is the retained Core online/offline topic (also the LWT topic).
//
// Example: forestos/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllSensorReadings matches telemetry from every sensor.
//
// Pattern: forestos/sensors/+/readings
func (Topics) AllSensorReadings() string {
	return fmt.Sprintf("%s/+/readings", TopicPrefixSensors)
}

// AllWateringStatus matches status reports for every plant.
//
// Pattern: forestos/watering/+/status
func (Topics) AllWateringStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixWatering)
}

// ParseSensorReadingsTopic extracts the device id from a readings topic.
func ParseSensorReadingsTopic(topic string) (deviceID string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixSensors+"/")
	if !found {
		return "", false
	}
	deviceID, found = strings.CutSuffix(rest, "/readings")
	if !found || deviceID == "" || strings.Contains(deviceID, "/") {
		return "", false
	}
	return deviceID, true
}

// ParseWateringStatusTopic extracts the plant id from a watering status topic.
func ParseWateringStatusTopic(topic string) (plantID int64, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixWatering+"/")
	if !found {
		return 0, false
	}
	idStr, found := strings.CutSuffix(rest, "/status")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	// Only the canonical form is accepted: "007" or "+7" are other topics.
	if (Topics{}).WateringStatus(id) != topic {
		return 0, false
	}
	return id, true
}
