// Package sensor manages soil sensors, their credentials and readings.
//
// A sensor is identified by its hardware device id and authenticates with
// an opaque token generated at registration. Readings arrive either over
// HTTP or over MQTT on forestos/sensors/{device_id}/readings; both paths end
// in Service.Submit, which stores the reading, evaluates alerts, mirrors it
// to the time-series store and notifies listeners.
//
// Ownership is derived: a sensor belongs to the owner of the plant it is
// paired with. An unpaired sensor has no owner.
package sensor
