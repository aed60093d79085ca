// Package decode turns raw script output into typed records.
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel is AppleScript's "no value" token. The serializers emit JSON
// null for it; only date and number fields also accept it as a native echo,
// since no real date or number reads that way.
const Sentinel = "missing value"

func isAbsent(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isAbsentScalar also treats the native sentinel echo as absent.
func isAbsentScalar(data []byte) bool {
	if isAbsent(data) {
		return true
	}
	var s string
	if err := json.Unmarshal(bytes.TrimSpace(data), &s); err != nil {
		return false
	}
	return s == Sentinel
}

// text is a string field kept byte for byte as OmniFocus returned it.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	if isAbsent(data) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = text(s)
	return nil
}

// optionalText maps null to nil. Empty strings survive.
type optionalText struct {
	value *string
}

func (o *optionalText) UnmarshalJSON(data []byte) error {
	if isAbsent(data) {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.value = &s
	return nil
}

type optionalTime struct {
	value *time.Time
}

func (o *optionalTime) UnmarshalJSON(data []byte) error {
	if isAbsentScalar(data) {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	o.value = &parsed
	return nil
}

// optionalInt accepts a JSON number, a numeric string, null or the sentinel.
type optionalInt struct {
	value *int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	if isAbsentScalar(data) {
		o.value = nil
		return nil
	}
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	number, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	value := int(number)
	o.value = &value
	return nil
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"Monday, January 2, 2006 at 3:04:05 PM",
	"Monday, January 2, 2006 3:04:05 PM",
	"Monday, 2 January 2006 at 15:04:05",
	"January 2, 2006 at 3:04:05 PM",
	"January 2, 2006 3:04:05 PM",
	"2006-01-02",
}

// ParseDate converts a date echo to a local timestamp. It accepts the
// serializers' ISO form, RFC 3339 and native AppleScript echoes such as
// `date "Wednesday, January 15, 2025 at 9:00:00 AM"`.
func ParseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if strings.HasPrefix(s, "date ") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "date "))
	}
	s = strings.Trim(s, `"`)
	s = strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(s)

	for _, layout := range dateLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return parsed.In(time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
