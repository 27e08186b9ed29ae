package dbmysql

import (
	"fmt"
	"time"
)

type Conversation struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	PairKey       *string    `gorm:"column:pair_key;size:64;uniqueIndex" json:"-"`
	IsActive      bool       `gorm:"column:is_active;not null;index" json:"is_active"`
	LastMessage   string     `gorm:"column:last_message;type:text" json:"last_message"`
	LastMessageAt *time.Time `gorm:"column:last_message_time" json:"last_message_time"`
	LastSeq       uint64     `gorm:"column:last_seq;not null" json:"last_seq"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// ConversationParticipant holds per-member state, including the unread counter.
type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversation_id"`
	UserID         uint64    `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	IsActive       bool      `gorm:"column:is_active;not null" json:"is_active"`
	UnreadCount    int64     `gorm:"column:unread_count;not null" json:"unread_count"`
	LastReadSeq    uint64    `gorm:"column:last_read_seq;not null" json:"last_read_seq"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// PairKey is the order-independent key of a direct conversation between a and b.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// UnreadCounts maps participant id to unread count, active members only.
func (c *Conversation) UnreadCounts() map[uint64]int64 {
	out := make(map[uint64]int64, len(c.Participants))
	for _, p := range c.Participants {
		if p.IsActive {
			out[p.UserID] = p.UnreadCount
		}
	}
	return out
}

func (c *Conversation) ActiveParticipantIDs() []uint64 {
	ids := make([]uint64, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.IsActive {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

func (c *Conversation) IsParticipant(userID uint64) bool {
	for _, p := range c.Participants {
		if p.UserID == userID && p.IsActive {
			return true
		}
	}
	return false
}
