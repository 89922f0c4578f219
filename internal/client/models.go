// ABOUTME: Wire types for devices, recorded segments and calendar days
// ABOUTME: Mirrors the JSON returned by the status and metadata services

package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Health values reported by the status service
const (
	HealthHealthy   = "HEALTHY"
	HealthUnhealthy = "UNHEALTHY"
	HealthUnknown   = "UNKNOWN"
)

// Device is a registered dashcam unit
type Device struct {
	ID           string    `json:"uuid"`
	Name         string    `json:"nickname"`
	HealthStatus string    `json:"health_status,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Health normalises the health indicator to one of the known values
func (d Device) Health() string {
	switch strings.ToUpper(d.HealthStatus) {
	case HealthHealthy:
		return HealthHealthy
	case HealthUnhealthy:
		return HealthUnhealthy
	default:
		return HealthUnknown
	}
}

// UnmarshalJSON tolerates timestamps without a zone offset
func (d *Device) UnmarshalJSON(data []byte) error {
	type plain Device
	aux := struct {
		*plain
		RegisteredAt string `json:"registered_at"`
		LastSeenAt   string `json:"last_seen_at"`
	}{plain: (*plain)(d)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if d.RegisteredAt, err = parseTimestamp(aux.RegisteredAt); err != nil {
		return fmt.Errorf("device %s: %w", d.ID, err)
	}
	if d.LastSeenAt, err = parseTimestamp(aux.LastSeenAt); err != nil {
		return fmt.Errorf("device %s: %w", d.ID, err)
	}
	return nil
}

// Segment is one recorded clip
type Segment struct {
	ObjectKey  string    `json:"object_key"`
	RecordedAt time.Time `json:"recorded_at"`
	Duration   float64   `json:"duration"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
}

// UnmarshalJSON accepts created_at as an alias of recorded_at
func (s *Segment) UnmarshalJSON(data []byte) error {
	type plain Segment
	aux := struct {
		*plain
		RecordedAt string `json:"recorded_at"`
		CreatedAt  string `json:"created_at"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := aux.RecordedAt
	if raw == "" {
		raw = aux.CreatedAt
	}
	t, err := parseTimestamp(raw)
	if err != nil {
		return fmt.Errorf("segment %s: %w", s.ObjectKey, err)
	}
	s.RecordedAt = t
	return nil
}

// Length returns the segment duration
func (s Segment) Length() time.Duration {
	return time.Duration(s.Duration * float64(time.Second))
}

// Bytes returns the file size, treating a negative size as zero
func (s Segment) Bytes() uint64 {
	return uint64(max(s.FileSize, 0))
}

// Day is a calendar date in the client's local timezone
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

const dayLayout = "2006-01-02"

// timestampLayouts are tried in order; zone-less values are read as local time
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// DayOf returns the calendar day of t in t's location
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses YYYY-MM-DD, "today" or "yesterday" relative to now
func ParseDay(s string, now time.Time) (Day, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return DayOf(now), nil
	case "yesterday":
		return DayOf(now.AddDate(0, 0, -1)), nil
	}
	t, err := time.ParseInLocation(dayLayout, strings.TrimSpace(s), now.Location())
	if err != nil {
		return Day{}, Validation("date", "must be YYYY-MM-DD, today or yesterday")
	}
	return DayOf(t), nil
}

// IsZero reports whether the day is unset
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the day as YYYY-MM-DD
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the day n days later, or earlier for negative n
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.Local))
}

// Boundary is the start-of-day timestamp the metadata service expects
func (d Day) Boundary() string {
	return d.String() + "T00:00:00"
}
