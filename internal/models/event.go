package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventTypeProgress is the only push-channel message kind this client
// understands. Other kinds are skipped for forward compatibility.
const EventTypeProgress = "progress"

// ErrUnknownEvent reports a pushed message whose type is not recognized.
var ErrUnknownEvent = errors.New("unknown event type")

// ProgressEvent is a decoded push-channel message for a generation task.
// The same shape is produced by the status-polling fallback so both paths
// feed the identical transition logic.
type ProgressEvent struct {
	Type     string     `json:"type"`
	TaskID   string     `json:"task_id"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
	Message  string     `json:"message,omitempty"`
	Current  string     `json:"current,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// DecodeProgressEvent decodes a raw push-channel message. Messages of an
// unrecognized type return ErrUnknownEvent so callers can skip them without
// treating the payload as malformed.
func DecodeProgressEvent(data []byte) (*ProgressEvent, error) {
	var ev ProgressEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding progress event: %w", err)
	}
	if ev.Type != EventTypeProgress {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return &ev, nil
}
