package domain

import (
	"encoding/json"
	"time"
)

// TimeLayout is the wire format the dashboard expects.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp marshals as "YYYY-MM-DD HH:MM:SS" in its own location.
type Timestamp struct {
	time.Time
}

// Now is the current local time at the wire format's one second precision,
// without a monotonic reading, so it survives a JSON round trip unchanged.
func Now() Timestamp { return Timestamp{time.Now().Truncate(time.Second).Round(0)} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(TimeLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
