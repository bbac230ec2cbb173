package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// NewEnvelope собирает событие документа с заполненными
// идентификатором и временем.
func NewEnvelope(source, eventType, docID string, key uint64, payload []byte) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		DocID:     docID,
		Key:       key,
		Payload:   payload,
	}
}
