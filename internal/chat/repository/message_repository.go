package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

// HistoryQuery pages through a conversation by sequence number. AfterSeq
// returns messages newer than the cursor, oldest first; BeforeSeq returns the
// page just older than the cursor, still oldest first.
type HistoryQuery struct {
	AfterSeq  uint64
	BeforeSeq uint64
	Limit     int
}

// ReadResult reports what a MarkRead call changed.
type ReadResult struct {
	MarkedCount int64
	LastReadSeq uint64
	UnreadCount int64
}

type MessageRepository interface {
	// Append stores msg and its attachments, updates the conversation summary
	// and bumps every other active participant's unread counter, all in one
	// transaction. It returns the ids of those other participants.
	Append(ctx context.Context, msg *dbmysql.Message) ([]uint64, error)
	ByID(ctx context.Context, id uint64) (*dbmysql.Message, error)
	History(ctx context.Context, conversationID string, q HistoryQuery) ([]*dbmysql.Message, error)
	// MarkRead marks messages up to upToSeq (0 means all) that the reader did
	// not author as read and recomputes the reader's unread counter.
	MarkRead(ctx context.Context, conversationID string, readerID, upToSeq uint64) (*ReadResult, error)
}

type messageRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *messageRepo) Append(ctx context.Context, msg *dbmysql.Message) ([]uint64, error) {
	var recipients []uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv dbmysql.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.ConversationID).
			First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !conv.IsActive) {
			return fmt.Errorf("conversation %s: %w", msg.ConversationID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock conversation: %w", err)
		}

		var members []dbmysql.ConversationParticipant
		if err := tx.Where("conversation_id = ? AND is_active = ?", conv.ID, true).
			Find(&members).Error; err != nil {
			return fmt.Errorf("load participants: %w", err)
		}

		isMember := false
		recipients = recipients[:0]
		for _, m := range members {
			if m.UserID == msg.SenderID {
				isMember = true
				continue
			}
			recipients = append(recipients, m.UserID)
		}
		if !isMember {
			return fmt.Errorf("user %d in conversation %s: %w", msg.SenderID, conv.ID, common.ErrUnauthorized)
		}

		now := r.now()
		msg.Seq = conv.LastSeq + 1
		msg.CreatedAt = now
		msg.IsRead = false
		msg.ReadAt = nil
		for i := range msg.Attachments {
			msg.Attachments[i].UploadedAt = now
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		if err := tx.Model(&dbmysql.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]interface{}{
				"last_message":      preview(msg),
				"last_message_time": now,
				"last_seq":          msg.Seq,
				"updated_at":        now,
			}).Error; err != nil {
			return fmt.Errorf("update conversation summary: %w", err)
		}

		if len(recipients) == 0 {
			return nil
		}
		return tx.Model(&dbmysql.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id IN ? AND is_active = ?", conv.ID, recipients, true).
			UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

func (r *messageRepo) ByID(ctx context.Context, id uint64) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).Preload("Attachments").Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepo) History(ctx context.Context, conversationID string, q HistoryQuery) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message

	query := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ?", conversationID)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	if q.BeforeSeq > 0 {
		query = query.Where("seq < ?", q.BeforeSeq).Order("seq DESC")
	} else {
		query = query.Where("seq > ?", q.AfterSeq).Order("seq ASC")
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	if q.BeforeSeq > 0 {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, conversationID string, readerID, upToSeq uint64) (*ReadResult, error) {
	result := &ReadResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member dbmysql.ConversationParticipant
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ? AND user_id = ? AND is_active = ?", conversationID, readerID, true).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d in conversation %s: %w", readerID, conversationID, common.ErrUnauthorized)
		}
		if err != nil {
			return fmt.Errorf("lock participant: %w", err)
		}

		if upToSeq == 0 {
			var conv dbmysql.Conversation
			if err := tx.Select("last_seq").Where("id = ?", conversationID).First(&conv).Error; err != nil {
				return fmt.Errorf("load conversation: %w", err)
			}
			upToSeq = conv.LastSeq
		}

		now := r.now()
		res := tx.Model(&dbmysql.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND seq <= ? AND is_read = ?", conversationID, readerID, upToSeq, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": now})
		if res.Error != nil {
			return fmt.Errorf("mark messages read: %w", res.Error)
		}
		result.MarkedCount = res.RowsAffected

		result.LastReadSeq = member.LastReadSeq
		if upToSeq > result.LastReadSeq {
			result.LastReadSeq = upToSeq
		}

		if err := tx.Model(&dbmysql.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND seq > ?", conversationID, readerID, result.LastReadSeq).
			Count(&result.UnreadCount).Error; err != nil {
			return fmt.Errorf("count unread: %w", err)
		}

		return tx.Model(&dbmysql.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, readerID).
			Updates(map[string]interface{}{
				"last_read_seq": result.LastReadSeq,
				"unread_count":  result.UnreadCount,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func preview(msg *dbmysql.Message) string {
	if msg.Content == "" && len(msg.Attachments) > 0 {
		return "Attachment: " + msg.Attachments[0].FileName
	}
	return msg.Content
}
