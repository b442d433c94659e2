// Package kafka publishes session lifecycle events for downstream consumers
// (analytics, notification fan-out).  Publishing is best effort: a broker
// outage is logged and never fails a workflow transition.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// Topic names.  The configured prefix is prepended at publish time.
const (
	TopicSessionCreated    = "session.created"
	TopicSessionSummarized = "session.summarized"
	TopicProposalDrafted   = "session.proposal_drafted"
	TopicStructureDrafted  = "session.structure_drafted"
	TopicDocumentsReady    = "session.documents_ready"
	TopicSessionFailed     = "session.failed"
)

// EventEnvelope is the wire format shared by all session events.
type EventEnvelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEventEnvelope wraps a payload with event metadata.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode event payload")
	}
	return &EventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    "chemscribe." + source,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}
