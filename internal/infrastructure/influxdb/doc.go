// Package influxdb provides InfluxDB connectivity for PawVision.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, point writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series export for:
//   - Viewing session history (duration, trigger, end reason)
//   - Player state transitions for screen-on dashboards
//
// SQLite remains the source of truth for statistics; InfluxDB is an
// optional mirror for long-range charting.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "pawvision",
//	    Bucket: "viewing",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.ExportViewingSession(ended)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
