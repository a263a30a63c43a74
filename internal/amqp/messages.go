package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by entry event messages.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// EntryEventMessage is a lightweight notification that a ledger entry changed.
// It carries only identifiers; consumers fetch current state from the database.
type EntryEventMessage struct {
	EntryID    string    `json:"entry_id"`
	OwnerID    string    `json:"owner_id"`
	CategoryID string    `json:"category_id"`
	Op         string    `json:"op"`
	OccurredOn time.Time `json:"occurred_on"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewEntryEventMessage(entryID, ownerID, categoryID, op string, occurredOn time.Time) *EntryEventMessage {
	return &EntryEventMessage{
		EntryID:    entryID,
		OwnerID:    ownerID,
		CategoryID: categoryID,
		Op:         op,
		OccurredOn: occurredOn,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventMessageFromJSON creates a message from JSON bytes
func EntryEventMessageFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
