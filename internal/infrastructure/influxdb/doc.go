// Package influxdb mirrors ForestOS telemetry into InfluxDB v2.
//
// SQLite stays the system of record. Every stored sensor reading and every
// watering event state change is also written here so dashboards can chart
// moisture, temperature and watering history without hitting the API.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time series
//	}
//	client.WriteSensorReading(influxdb.SensorReading{DeviceID: "SENSOR_001", MoisturePct: 41})
package influxdb
