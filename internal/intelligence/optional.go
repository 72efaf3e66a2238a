package intelligence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Optional records whether a field was present in a payload and whether it
// was an explicit null, so partial updates can tell "leave alone" from "clear".
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

func (o Optional[T]) IsSet() bool  { return o.set }
func (o Optional[T]) IsNull() bool { return o.set && o.null }
func (o Optional[T]) Value() T     { return o.value }

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.value, o.null = zero, true
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

// IDList is a list of numeric row ids. It accepts a JSON array of numbers or
// numeric strings, or a single comma separated string as sent by HTML forms.
type IDList []uint

func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		ids := make(IDList, 0, len(raw))
		for _, item := range raw {
			id, err := parseID(item)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*l = ids
		return nil
	}

	var csv string
	if err := json.Unmarshal(data, &csv); err != nil {
		return fmt.Errorf("%w: id list must be an array or a comma separated string", ErrValidation)
	}
	ids := IDList{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("%w: invalid id %q", ErrValidation, part)
		}
		ids = append(ids, uint(id))
	}
	*l = ids
	return nil
}

// Unique drops repeated ids, keeping first-seen order.
func (l IDList) Unique() IDList {
	seen := make(map[uint]struct{}, len(l))
	out := make(IDList, 0, len(l))
	for _, id := range l {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func parseID(raw json.RawMessage) (uint, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: invalid id %s", ErrValidation, raw)
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("%w: invalid id %s", ErrValidation, raw)
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id %s", ErrValidation, raw)
	}
	return uint(id), nil
}

// UserIDList is a list of agent ids, as an array or a comma separated string.
type UserIDList []string

func (l *UserIDList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		var csv string
		if err := json.Unmarshal(data, &csv); err != nil {
			return fmt.Errorf("%w: agent id list must be an array or a comma separated string", ErrValidation)
		}
		list = strings.Split(csv, ",")
	}

	ids := UserIDList{}
	seen := make(map[string]struct{}, len(list))
	for _, id := range list {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

// Date is a calendar day given as YYYY-MM-DD. Full RFC 3339 timestamps are
// accepted and truncated to their date.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrValidation)
	}
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		d.Time = t
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	}
	return fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, raw)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

func (d Date) column() *datatypes.Date {
	v := datatypes.Date(d.Time)
	return &v
}

// Timestamp is an RFC 3339 instant. Values without a zone are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", ErrValidation)
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: invalid timestamp %q", ErrValidation, raw)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}
