// Package core connects the console to the gateway and holds the view state.
package core

import (
	"time"

	"github.com/xonecas/relic-console/internal/protocol"
)

// LinkState is the connection state of the gateway link.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
	LinkReconnecting
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "DISCONNECTED"
	case LinkConnecting:
		return "CONNECTING"
	case LinkConnected:
		return "CONNECTED"
	case LinkReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies the type of event.
type EventType string

const (
	EventFrame       EventType = "frame"        // Decoded inbound frame
	EventDecodeError EventType = "decode_error" // Inbound frame dropped
	EventLinkState   EventType = "link_state"
	EventLinkError   EventType = "link_error" // Dial or read failure
	EventCommand     EventType = "command"    // Outbound command written (or failed)
)

// Event represents something that happened on the gateway link.
type Event struct {
	Type      EventType
	Data      interface{}
	Timestamp time.Time
}

// FrameData carries a decoded inbound frame.
type FrameData struct {
	Message protocol.Message
}

// ErrorData contains data for error events.
type ErrorData struct {
	Error string
}

// LinkStateData contains data for link state changes.
type LinkStateData struct {
	OldState LinkState
	NewState LinkState
	Attempt  int
}

// CommandData reports the outcome of writing a command to the socket.
type CommandData struct {
	Command protocol.Command
	Err     error
}
