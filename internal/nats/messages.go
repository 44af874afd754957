package nats

import (
	"encoding/json"
	"strings"

	"github.com/smazurov/procman/internal/supervisor"
)

// SubjectPrefix is the root of every procman subject.
const SubjectPrefix = "procman"

// Control actions.
const (
	ActionStatus = "status"
	ActionStop   = "stop"
)

// SubjectEvents returns the subject an event is published on.
func SubjectEvents(worker, event string) string {
	return SubjectPrefix + "." + subjectToken(worker) + ".events." + subjectToken(event)
}

// SubjectControl returns the control subject of a pool.
func SubjectControl(worker string) string {
	return SubjectPrefix + "." + subjectToken(worker) + ".control"
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// EventMessage wraps a supervisor event for the wire.
type EventMessage struct {
	Event     string `json:"event"`
	Worker    string `json:"worker"`
	Host      string `json:"host,omitempty"`
	MasterPID int    `json:"master_pid"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Marshal serializes the message to JSON.
func (m EventMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlMessage is a control request.
type ControlMessage struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControl deserializes a control request.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// ControlReply answers a control request.
type ControlReply struct {
	OK     bool             `json:"ok"`
	Error  string           `json:"error,omitempty"`
	Status *supervisor.Info `json:"status,omitempty"`
}

// Marshal serializes the reply to JSON.
func (m ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalReply deserializes a control reply.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var m ControlReply
	err := json.Unmarshal(data, &m)
	return m, err
}
