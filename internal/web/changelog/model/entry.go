// Package model contains the changelog records.
package model

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Entry is one changelog record, Date doubles as its store key
type Entry struct {
	Date  string `json:"date"`
	Text  string `json:"text"`
	Media Media  `json:"media"`
}

// Marshal serializes the entry for the entry store
func (e *Entry) Marshal() (string, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", errors.Wrap(err, "marshal entry")
	}

	return string(payload), nil
}

// UnmarshalEntry decodes a stored payload
func UnmarshalEntry(payload string) (*Entry, error) {
	e := new(Entry)
	if err := json.Unmarshal([]byte(payload), e); err != nil {
		return nil, errors.Wrap(err, "unmarshal entry")
	}

	return e, nil
}

// IsLegacyPayload reports whether payload predates the JSON format,
// legacy records hold the bare text.
func IsLegacyPayload(payload string) bool {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "{") {
		return true
	}

	return !json.Valid([]byte(payload))
}
