package dbmysql

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

type Message struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string     `gorm:"size:36;not null;uniqueIndex:idx_message_conv_seq,priority:1" json:"conversation_id"`
	Seq            uint64     `gorm:"not null;uniqueIndex:idx_message_conv_seq,priority:2" json:"seq"`
	SenderID       uint64     `gorm:"not null;index" json:"sender_id"`
	Content        string     `gorm:"type:text" json:"content"`
	MessageType    string     `gorm:"size:10;not null" json:"message_type"`
	IsRead         bool       `gorm:"not null" json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`

	Attachments []MessageAttachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
}

// MessageAttachment references a blob held in external storage by FileID.
type MessageAttachment struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID  uint64    `gorm:"not null;index" json:"message_id"`
	FileID     string    `gorm:"size:64;not null" json:"file_id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	FileType   string    `gorm:"size:100" json:"file_type"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
