// Package plant holds the species catalog and the plants users own.
//
// The catalog is shared reference data, written only by superusers or
// seeded from a YAML file at startup. A UserPlant is an instance of a
// catalog species owned by exactly one user; its owner is the anchor of
// every ownership check for the sensors, watering events and alerts
// attached to it.
//
// # Thread Safety
//
// The SQLite repositories are safe for concurrent use.
package plant
