package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Event kinds carried by ChangeMessage.
const (
	KindFinanceChanged  = "finance.changed"
	KindMinutesUploaded = "activity.minutes_uploaded"
)

// ChangeMessage announces that a record changed. It carries only identifiers;
// consumers reload current state from the data backend.
type ChangeMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Year      int       `json:"year,omitempty"`
	Op        string    `json:"op,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(kind, op string, id int64, year int) *ChangeMessage {
	return &ChangeMessage{
		Kind:      kind,
		ID:        id,
		Year:      year,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, errors.New("message without kind")
	}
	return &msg, nil
}
