package stream

import "time"

type MessageType string

const (
	MsgHello         MessageType = "hello"
	MsgSpeedChange   MessageType = "speed_change"
	MsgSessionStatus MessageType = "session_status"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type HelloPayload struct {
	Session string `json:"session"`
}

type SessionStatusPayload struct {
	Endpoint string    `json:"endpoint"`
	Previous string    `json:"previous"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}
