package queue

import "encoding/json"

// MessageVersion is the current review message schema version.
const MessageVersion = 1

// Message asks the review worker to pick up a submitted form.
type Message struct {
	ApplicationID string `json:"applicationId"`
	FormKey       string `json:"formKey"`
	RequestID     string `json:"requestId,omitempty"`
	EnqueuedAt    string `json:"enqueuedAt"`
	Version       int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
