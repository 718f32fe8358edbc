package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/pawvision/core/internal/player"
)

// ExportViewingSession writes one finished viewing session to the
// viewing_sessions measurement. It implements the statistics recorder's
// SessionExporter; the write is non-blocking and batched.
//
// Tags carry the low-cardinality dimensions (trigger, end reason); the
// video identity and watched duration go into fields so a large library
// cannot explode series cardinality.
func (c *Client) ExportViewingSession(ev player.PlayEnded) {
	if !c.IsConnected() {
		return
	}

	ts := ev.EndedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	point := write.NewPoint(
		"viewing_sessions",
		map[string]string{
			"trigger": string(ev.Trigger),
			"reason":  string(ev.Reason),
		},
		map[string]interface{}{
			"duration_seconds": ev.Viewed.Seconds(),
			"video_path":       ev.VideoID,
			"video_title":      ev.Title,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePlayerState writes a playback state transition to the player_state
// measurement. Used for dashboards showing when the screen was on.
func (c *Client) WritePlayerState(ev player.StateEvent) {
	if !c.IsConnected() {
		return
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	playing := 0
	if ev.Playing {
		playing = 1
	}

	point := write.NewPoint(
		"player_state",
		map[string]string{
			"trigger": string(ev.Trigger),
		},
		map[string]interface{}{
			"playing":     playing,
			"video_path":  ev.VideoID,
			"video_title": ev.Title,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
