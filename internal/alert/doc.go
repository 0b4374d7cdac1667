// Package alert stores user-facing alerts and decides when to raise them.
//
// The Evaluator is fed by the sensor and watering packages: every stored
// reading is checked against the plant's moisture thresholds and the
// sensor's battery level, silent sensors raise sensor_offline, and failed
// waterings raise watering_failed. At most one unread alert of a type
// exists per plant; further triggers are suppressed until it is read.
package alert
