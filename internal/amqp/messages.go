package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// JournalChangedMessage tells consumers that an owner's journal changed.
// It carries no journal data; consumers reload what they need.
type JournalChangedMessage struct {
	OwnerID   string    `json:"ownerId"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewJournalChangedMessage(ownerID, operation string) *JournalChangedMessage {
	return &JournalChangedMessage{
		OwnerID:   ownerID,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

func (m *JournalChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JournalChangedMessageFromJSON decodes a message and rejects ones without
// an owner.
func JournalChangedMessageFromJSON(data []byte) (*JournalChangedMessage, error) {
	var msg JournalChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, errors.New("message has no owner id")
	}
	return &msg, nil
}
