// Package protocol defines the JSON frames exchanged with the node-simulation gateway.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/xonecas/relic-console/internal/constants"
)

// ID identifies a node or gossip entry. The gateway sends integers (v2) or
// strings (v1); the original JSON form is kept so ids round-trip unchanged.
type ID struct {
	text    string
	numeric bool
}

// StringID builds an ID that encodes as a JSON string.
func StringID(s string) ID {
	return ID{text: s}
}

// NumberID builds an ID that encodes as a JSON number.
func NumberID(n int64) ID {
	return ID{text: fmt.Sprintf("%d", n), numeric: true}
}

// String returns the id text without quotes.
func (id ID) String() string {
	return id.text
}

// IsZero reports whether the id was absent or null.
func (id ID) IsZero() bool {
	return id.text == "" && !id.numeric
}

// Numeric reports whether the id arrived as a JSON number.
func (id ID) Numeric() bool {
	return id.numeric
}

// MarshalJSON emits the id in the form it was received.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}

	switch data[0] {
	case 'n':
		*id = ID{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID{text: s}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be string or number: %w", err)
		}
		*id = ID{text: n.String(), numeric: true}
		return nil
	}
}

// Mode is the gateway's global operating mode.
type Mode string

const (
	ModeCompute Mode = "COMPUTE"
	ModePersona Mode = "PERSONA"
)

// Toggle returns the mode the console requests when the user flips the switch.
func (m Mode) Toggle() Mode {
	if m == ModeCompute {
		return ModePersona
	}
	return ModeCompute
}

// Node is one simulated participant as last reported by the gateway.
type Node struct {
	ID     ID        `json:"id"`
	Name   string    `json:"name"`
	Vector []float64 `json:"vector"`
	Drift  float64   `json:"drift"`
	Peers  []ID      `json:"peers,omitempty"`
}

// Magnitude is the Euclidean norm of the state vector.
func (n Node) Magnitude() float64 {
	var sum float64
	for _, v := range n.Vector {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// HighSeverity reports |vector[0]| > 0.8. Empty vectors are never hot.
func (n Node) HighSeverity() bool {
	if len(n.Vector) == 0 {
		return false
	}
	return math.Abs(n.Vector[0]) > constants.SeverityThreshold
}

// DriftPercent is drift rendered as a percentage.
func (n Node) DriftPercent() float64 {
	return n.Drift * 100
}

// Component returns vector[i], or 0 when the vector is shorter.
func (n Node) Component(i int) float64 {
	if i < 0 || i >= len(n.Vector) {
		return 0
	}
	return n.Vector[i]
}

// Gossip is one propagated social message.
type Gossip struct {
	ID   ID     `json:"id"`
	Node string `json:"node"`
	Msg  string `json:"msg"`
	Time string `json:"time"`
}
