package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DecodeError describes a record that could not be turned into a domain value.
// Index is the position in the collection, -1 for single records and envelopes.
type DecodeError struct {
	Index  int
	ID     string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode")
	if e.Index >= 0 {
		fmt.Fprintf(&b, " record %d", e.Index)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " (id %s)", e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// record is a raw JSON object keyed by field name
type record map[string]json.RawMessage

func parseRecord(raw json.RawMessage) (record, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return nil, &DecodeError{Index: -1, Reason: "record is not an object"}
	}
	return rec, nil
}

// pick returns the first present, non-null value among keys.
func (r record) pick(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || isNull(v) {
			continue
		}
		return bytes.TrimSpace(v), true
	}
	return nil, false
}

// id reads an identifier that may be encoded as a number or a string.
func (r record) id(keys ...string) (string, bool) {
	v, ok := r.pick(keys...)
	if !ok {
		return "", false
	}
	s, ok := scalar(v)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

// str reads a text field. Numbers are accepted in their literal form.
func (r record) str(keys ...string) (string, error) {
	v, ok := r.pick(keys...)
	if !ok {
		return "", nil
	}
	s, ok := scalar(v)
	if !ok {
		return "", fmt.Errorf("expected text")
	}
	return s, nil
}

// num reads a numeric field; missing, unparseable, NaN and infinite values
// all come back as nil.
func (r record) num(keys ...string) *float64 {
	v, ok := r.pick(keys...)
	if !ok {
		return nil
	}
	s, ok := scalar(v)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// timestamp reads a timestamp given as an ISO-8601 string or epoch milliseconds.
func (r record) timestamp(keys ...string) (*time.Time, error) {
	v, ok := r.pick(keys...)
	if !ok {
		return nil, nil
	}
	if v[0] != '"' {
		ms, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected timestamp")
		}
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}
	s, _ := scalar(v)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, ok := parseTime(s)
	if !ok {
		return nil, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return &t, nil
}

// scalar renders a JSON string or number as text.
func scalar(v json.RawMessage) (string, bool) {
	if len(v) == 0 {
		return "", false
	}
	switch c := v[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		return s, true
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
