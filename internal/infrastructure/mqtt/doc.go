// Package mqtt connects ForestOS Core to the MQTT broker used by field devices.
//
// Soil sensors publish telemetry to forestos/sensors/{device_id}/readings.
// Core publishes watering requests to forestos/watering/{plant_id}/command
// and listens for pump controller reports on forestos/watering/{plant_id}/status.
// Core's own availability is published retained on forestos/system/status,
// with a Last Will so a crash is visible to subscribers.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1, ingestor.HandleMessage)
//
// TLS should be enabled (mqtt.broker.tls) whenever the broker is reachable
// beyond localhost, since sensor auth tokens travel in message bodies.
package mqtt
