package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies an inbound frame.
type Kind string

const (
	KindTick     Kind = "TICK"
	KindSysEvent Kind = "SYS_EVENT"
	// KindRoster is a bare node array pushed by the v1 gateway.
	KindRoster Kind = "ROSTER"
)

// Message is a decoded inbound frame. Fields not carried by Kind are zero.
type Message struct {
	Kind   Kind
	Nodes  []Node
	Mode   Mode
	Gossip []Gossip
	Msg    string
}

// DecodeError reports a frame that could not be parsed.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %q: %v", e.Snippet(), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Snippet returns at most the first 64 bytes of the offending frame.
func (e *DecodeError) Snippet() string {
	const max = 64
	if len(e.Frame) <= max {
		return string(e.Frame)
	}
	return string(e.Frame[:max]) + "..."
}

var errEmptyFrame = errors.New("empty frame")

type envelope struct {
	Type string `json:"type"`
}

type tickFrame struct {
	Nodes  []Node   `json:"nodes"`
	Mode   Mode     `json:"mode"`
	Gossip []Gossip `json:"gossip"`
}

type sysEventFrame struct {
	Msg string `json:"msg"`
}

// Decode parses one text frame. Unknown frame types decode to a Message with
// that Kind and no error; callers ignore them.
func Decode(frame []byte) (Message, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return Message{}, &DecodeError{Frame: frame, Err: errEmptyFrame}
	}

	if trimmed[0] == '[' {
		var nodes []Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return Message{}, &DecodeError{Frame: frame, Err: err}
		}
		return Message{Kind: KindRoster, Nodes: nodes}, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Message{}, &DecodeError{Frame: frame, Err: err}
	}

	switch Kind(env.Type) {
	case KindTick:
		var t tickFrame
		if err := json.Unmarshal(trimmed, &t); err != nil {
			return Message{}, &DecodeError{Frame: frame, Err: err}
		}
		return Message{Kind: KindTick, Nodes: t.Nodes, Mode: t.Mode, Gossip: t.Gossip}, nil

	case KindSysEvent:
		var e sysEventFrame
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return Message{}, &DecodeError{Frame: frame, Err: err}
		}
		return Message{Kind: KindSysEvent, Msg: e.Msg}, nil

	default:
		return Message{Kind: Kind(env.Type)}, nil
	}
}
