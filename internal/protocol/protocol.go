// Package protocol defines the messages exchanged between the popup, the
// background process and the in-page content script.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names a message type.
type Kind string

const (
	// Pulls and commands issued by the popup.
	GetCurrentState Kind = "GET_CURRENT_STATE"
	StartMonitoring Kind = "START_MONITORING"
	StopMonitoring  Kind = "STOP_MONITORING"
	UpdateSettings  Kind = "UPDATE_SETTINGS"
	ClearAlerts     Kind = "CLEAR_ALERTS"

	// Pushes from the producer.
	TrustScoreUpdate   Kind = "TRUST_SCORE_UPDATE"
	AlertTriggered     Kind = "ALERT_TRIGGERED"
	SessionStatsUpdate Kind = "SESSION_STATS_UPDATE"
)

// ErrNoKind is returned for objects without a type field.
var ErrNoKind = errors.New("message has no type")

// Message is the envelope every protocol message travels in. Timestamp is
// Unix milliseconds.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      Kind            `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Reply is the answer to a message sent to the background or a tab.
type Reply struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a message of the given kind. A nil payload is omitted.
func New(kind Kind, payload any) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      kind,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	msg.Payload = data
	return msg, nil
}

// ParseMessage decodes one wire object. Objects that decode but carry no
// type yield ErrNoKind so callers can drop them quietly.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, ErrNoKind
	}
	return msg, nil
}

// DecodePayload unmarshals the message payload into v.
func DecodePayload(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", msg.Type, err)
	}
	return nil
}

// DecodeReply unmarshals the reply payload into v. A reply with ok=false is
// an error even when it carries a payload.
func DecodeReply(r Reply, v any) error {
	if !r.OK {
		if r.Error != "" {
			return fmt.Errorf("request rejected: %s", r.Error)
		}
		return errors.New("request rejected")
	}
	if len(r.Payload) == 0 {
		return errors.New("reply has no payload")
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// Err returns the reply's rejection as an error, or nil when it succeeded.
func (r Reply) Err() error {
	if r.OK {
		return nil
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return errors.New("request rejected")
}
