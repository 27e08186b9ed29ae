package dbmysql

import (
	"time"

	"startupconnect/internal/common"
)

// Notification is a notice kept for a recipient who was offline when a chat
// event was dispatched.
type Notification struct {
	ID             uint64                      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint64                      `gorm:"not null;index" json:"user_id"`
	Type           string                      `gorm:"not null;size:50" json:"type"`
	Header         string                      `gorm:"not null;size:255" json:"header"`
	Content        string                      `gorm:"type:text" json:"content"`
	Status         string                      `gorm:"not null;size:20" json:"status"`
	TriggerUserID  *uint64                     `json:"trigger_user_id,omitempty"`
	ConversationID *string                     `gorm:"size:36" json:"conversation_id,omitempty"`
	Metadata       common.NotificationMetadata `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	ReadAt         *time.Time                  `json:"read_at,omitempty"`
}

func (n *Notification) ToResponse() *common.NotificationResponse {
	return &common.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Header:    n.Header,
		Content:   n.Content,
		Status:    n.Status,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
