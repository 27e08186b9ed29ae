package common

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type NotificationType string

const (
	ChatMessageType NotificationType = "chat_message"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusRead    NotificationStatus = "read"
)

type NotificationMetadata map[string]interface{}

// Value stores metadata as a JSON document.
func (m NotificationMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal notification metadata: %w", err)
	}
	return string(b), nil
}

func (m *NotificationMetadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported notification metadata type %T", value)
	}
	return json.Unmarshal(raw, m)
}

type NotificationResponse struct {
	ID        uint64               `json:"id"`
	Type      string               `json:"type"`
	Header    string               `json:"header"`
	Content   string               `json:"content"`
	Status    string               `json:"status"`
	Metadata  NotificationMetadata `json:"metadata"`
	CreatedAt time.Time            `json:"created_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
}
