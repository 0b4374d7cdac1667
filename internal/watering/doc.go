// Package watering records watering events for user plants and drives
// the pump controllers that carry them out.
//
// A manual, automatic or scheduled trigger creates a pending Event and
// stamps the plant's last_watered in one transaction. The Commander then
// publishes a command over MQTT and folds the status reports the pump
// controller sends back into the stored event. Statistics are computed
// from completed events only.
package watering
