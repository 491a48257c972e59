package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Timestamp   time.Time   `json:"timestamp"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	ID          string      `json:"id"`
	MessageType string      `json:"message_type"`
	Message     interface{} `json:"message"`
}

// ToJSON serializes the whole envelope for MQTT transport.
func (message *Message) ToJSON() ([]byte, error) {
	return json.Marshal(message)
}

func CreateMessage(messageType, from, to string, message interface{}) Message {
	return Message{
		time.Now(),
		from,
		to,
		uuid.New().String(),
		messageType,
		message,
	}
}
