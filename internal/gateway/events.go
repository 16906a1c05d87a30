package gateway

import (
	"encoding/json"
	"time"
)

// ServerMessageType tags outbound websocket frames.
type ServerMessageType string

const (
	MessageQueued   ServerMessageType = "Queued"
	MessagePaired   ServerMessageType = "Paired"
	MessageState    ServerMessageType = "State"
	MessageEvent    ServerMessageType = "MatchEvent"
	MessageFinished ServerMessageType = "MatchFinished"
	MessageError    ServerMessageType = "Error"
)

// ServerMessage is the outbound frame envelope.
type ServerMessage struct {
	Type      ServerMessageType `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data,omitempty"`
}

// ClientMessageType tags inbound websocket frames.
type ClientMessageType string

const (
	ClientPick      ClientMessageType = "Pick"
	ClientSurrender ClientMessageType = "Surrender"
	ClientState     ClientMessageType = "State"
)

// ClientMessage is the inbound frame envelope. Choice is only read for Pick.
type ClientMessage struct {
	Type   ClientMessageType `json:"type"`
	Choice int               `json:"choice,omitempty"`
}

// ErrorPayload carries a recoverable protocol error back to the client.
type ErrorPayload struct {
	Message string `json:"message"`
}
