package fanout

import (
	"encoding/json"

	"startupconnect/internal/dbmysql"
)

type Kind string

const (
	KindChatMessage Kind = "chat_message"
	KindTyping      Kind = "typing"
	KindReadReceipt Kind = "read_receipt"

	// Frames that only go back to the originating session.
	KindMessageAck Kind = "chat_message_ack"
	KindError      Kind = "error"
)

// Event is something that happened in a conversation and must reach the live
// sessions of Recipients. Only chat messages are ever persisted.
type Event struct {
	Kind           Kind
	ConversationID string
	ActorID        uint64
	Recipients     []uint64

	Message  *dbmysql.Message
	IsTyping bool
	UpToSeq  uint64
}

// Outbound is the JSON frame written to a session.
type Outbound struct {
	Type           Kind             `json:"type"`
	ConversationID string           `json:"conversation_id,omitempty"`
	UserID         uint64           `json:"user_id,omitempty"`
	Message        *dbmysql.Message `json:"message,omitempty"`
	IsTyping       *bool            `json:"is_typing,omitempty"`
	UpToSeq        uint64           `json:"up_to_seq,omitempty"`
	Code           string           `json:"code,omitempty"`
	Error          string           `json:"error,omitempty"`
}

func (e Event) Frame() Outbound {
	out := Outbound{
		Type:           e.Kind,
		ConversationID: e.ConversationID,
		UserID:         e.ActorID,
	}
	switch e.Kind {
	case KindChatMessage:
		out.Message = e.Message
	case KindTyping:
		typing := e.IsTyping
		out.IsTyping = &typing
	case KindReadReceipt:
		out.UpToSeq = e.UpToSeq
	}
	return out
}

func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}

func AckFrame(msg *dbmysql.Message) Outbound {
	return Outbound{Type: KindMessageAck, ConversationID: msg.ConversationID, Message: msg}
}

func ErrorFrame(code, message string) Outbound {
	return Outbound{Type: KindError, Code: code, Error: message}
}
