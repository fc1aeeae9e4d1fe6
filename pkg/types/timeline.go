package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TimelineEntry records one status transition on an order.
type TimelineEntry struct {
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Timeline is the append-only transition history persisted as JSONB.
type Timeline []TimelineEntry

// Value serializes the timeline to JSON.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan decodes JSONB into the timeline.
func (t *Timeline) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded Timeline
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*t = decoded
	return nil
}

// Append returns the timeline extended with a new entry stamped now.
func (t Timeline) Append(status, note string, now time.Time) Timeline {
	return append(t, TimelineEntry{Status: status, Note: note, OccurredAt: now})
}
