package capture

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// MarshalContext serialises a Context to JSON.
func MarshalContext(c *Context) ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalContext deserialises a Context from JSON.
func UnmarshalContext(data []byte) (*Context, error) {
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarshalEvent serialises an Event to JSON.
func MarshalEvent(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserialises an Event from JSON.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Hash returns the SHA-256 hex digest of raw bytes. Used for DOM-state
// hashes and change sampling.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

// SerializedLen returns the serialized size of a Context in bytes. The
// aggregator's truncation loop re-measures with this after every
// reduction step.
func SerializedLen(c *Context) int {
	data, err := json.Marshal(c)
	if err != nil {
		return 0
	}
	return len(data)
}
