package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CommandKind names an outbound request.
type CommandKind string

const (
	CommandDeployCode CommandKind = "DEPLOY_CODE"
	CommandSetMode    CommandKind = "SET_MODE"
	CommandSpawn      CommandKind = "SPAWN"
	CommandPurge      CommandKind = "PURGE"
)

// Command is a fire-and-forget request to the gateway. The gateway never
// acknowledges it; the effect shows up in a later TICK or SYS_EVENT.
type Command struct {
	// ID is client-local, used for logs and the journal. It is not sent.
	ID      string      `json:"-"`
	Kind    CommandKind `json:"type"`
	Payload any         `json:"payload"`
}

func newCommand(kind CommandKind, payload any) Command {
	return Command{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
	}
}

// DeployCode ships new update-rule source to every node.
func DeployCode(source string) Command {
	return newCommand(CommandDeployCode, source)
}

// SetMode asks the gateway to switch operating mode.
func SetMode(mode Mode) Command {
	return newCommand(CommandSetMode, string(mode))
}

// Spawn asks the gateway to add a node. The payload is null.
func Spawn() Command {
	return newCommand(CommandSpawn, nil)
}

// Purge asks the gateway to remove a node.
func Purge(id ID) Command {
	return newCommand(CommandPurge, id)
}

// Encode renders the wire form {"type": ..., "payload": ...}.
func (c Command) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// PayloadText renders the payload for logs and the journal.
func (c Command) PayloadText() string {
	switch p := c.Payload.(type) {
	case nil:
		return ""
	case string:
		return p
	case ID:
		return p.String()
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
