package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// The composite fields (images, tags, dimensions) live in single text
// columns as JSON. A corrupt value in one of them must not make the whole
// row unreadable: Scan logs the problem and falls back to the field's
// default instead of returning an error.

// StringList is an ordered list of strings stored as a JSON array.
type StringList []string

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Without returns the list with every occurrence of s removed.
func (l StringList) Without(s string) StringList {
	out := l[:0:0]
	for _, v := range l {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// Scan implements sql.Scanner. It accepts JSON text as []byte or string;
// NULL, empty and malformed values all decode to an empty list.
func (l *StringList) Scan(value interface{}) error {
	*l = nil
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	if len(raw) == 0 {
		return nil
	}

	var parsed []string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		zap.L().Warn("malformed string list column, using empty list",
			zap.ByteString("raw", raw),
			zap.Error(err))
		return nil
	}
	*l = parsed
	return nil
}

// Value implements driver.Valuer, always serializing to JSON text. A nil
// list serializes to an empty array so the round trip is lossless.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Dimensions holds the physical size of a product. Valid is false when the
// product has no dimensions recorded; the column is NULL in that case.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Valid  bool    `json:"-"`
}

type dimensionsJSON struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MarshalJSON renders absent dimensions as null.
func (d Dimensions) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(dimensionsJSON{d.Length, d.Width, d.Height})
}

// UnmarshalJSON accepts either null or a {length,width,height} object.
func (d *Dimensions) UnmarshalJSON(data []byte) error {
	*d = Dimensions{}
	if string(data) == "null" {
		return nil
	}
	var parsed dimensionsJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*d = Dimensions{Length: parsed.Length, Width: parsed.Width, Height: parsed.Height, Valid: true}
	return nil
}

// Scan implements sql.Scanner with the same tolerance as StringList:
// malformed JSON degrades to absent dimensions.
func (d *Dimensions) Scan(value interface{}) error {
	*d = Dimensions{}
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Dimensions", value)
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var parsed dimensionsJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		zap.L().Warn("malformed dimensions column, treating as absent",
			zap.ByteString("raw", raw),
			zap.Error(err))
		return nil
	}
	*d = Dimensions{Length: parsed.Length, Width: parsed.Width, Height: parsed.Height, Valid: true}
	return nil
}

// Value implements driver.Valuer. Absent dimensions are stored as NULL.
func (d Dimensions) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	b, err := json.Marshal(dimensionsJSON{d.Length, d.Width, d.Height})
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
