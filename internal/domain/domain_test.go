package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestServiceResult_JSONShape(t *testing.T) {
	r := ServiceResult{
		Name:     "USTC",
		Provider: "ustc",
		Measurement: Measurement{
			URL:            "https://docker.mirrors.ustc.edu.cn",
			Status:         TierHealthy,
			ResponseTimeMS: 150,
			Method:         "HTTP HEAD",
			HTTPCode:       401,
			Reachable:      true,
			Timestamp:      Timestamp{time.Date(2025, 8, 18, 12, 0, 5, 0, time.Local)},
		},
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"url", "name", "provider", "status", "responseTime", "error", "method", "server", "ip", "timestamp", "httpCode"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing field %q in %s", k, b)
		}
	}
	if _, ok := m["Reachable"]; ok {
		t.Fatalf("reachable flag must not be serialized: %s", b)
	}
	if m["timestamp"] != "2025-08-18 12:00:05" {
		t.Fatalf("timestamp format: got %v", m["timestamp"])
	}
}

func TestServiceResult_OmitsZeroHTTPCode(t *testing.T) {
	b, _ := json.Marshal(ServiceResult{Measurement: Measurement{Status: TierFast}})
	if strings.Contains(string(b), "httpCode") {
		t.Fatalf("httpCode should be omitted when zero: %s", b)
	}
}

func TestTimestamp_RoundTrip(t *testing.T) {
	want := Timestamp{time.Date(2025, 8, 18, 23, 59, 1, 0, time.Local)}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Timestamp
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(want.Time) {
		t.Fatalf("mismatch after round-trip:\nwant=%v\ngot =%v", want, got)
	}

	var zero Timestamp
	if err := json.Unmarshal([]byte(`""`), &zero); err != nil || !zero.IsZero() {
		t.Fatalf("empty string should decode to zero time, got %v err=%v", zero, err)
	}
}

func TestStats_AddKeepsTotalInvariant(t *testing.T) {
	s := NewStats([]Tier{TierFast, TierFair, TierSlow, TierError})
	for _, tier := range []Tier{TierFast, TierFast, TierError, "weird", ""} {
		s.Add(tier)
	}
	if s.Total() != 5 || s.TierSum() != 5 {
		t.Fatalf("total=%d sum=%d, want 5/5: %v", s.Total(), s.TierSum(), s)
	}
	if s["weird"] != 1 || s[string(TierUnknown)] != 1 {
		t.Fatalf("unrecognized tiers must keep their own key: %v", s)
	}
	if s[string(TierSlow)] != 0 {
		t.Fatalf("preset tiers should be present at zero: %v", s)
	}
}

func TestStats_SuccessRate(t *testing.T) {
	s := NewStats([]Tier{TierHealthy, TierSlow, TierTimeout, TierError})
	s.Add(TierHealthy)
	s.Add(TierSlow)
	s.Add(TierTimeout)
	s.Add(TierError)
	if got := s.SuccessRate(); got != 50 {
		t.Fatalf("success rate: want 50 got %v", got)
	}
	if got := (Stats{}).SuccessRate(); got != 0 {
		t.Fatalf("empty stats rate: want 0 got %v", got)
	}
}

func TestNow_SurvivesJSON(t *testing.T) {
	want := Now()
	if want.Nanosecond() != 0 {
		t.Fatalf("Now should be whole seconds, got %v", want)
	}
	b, _ := json.Marshal(want)
	var got Timestamp
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Fatalf("round trip changed the value:\nwant=%#v\ngot =%#v", want.Time, got.Time)
	}
}
