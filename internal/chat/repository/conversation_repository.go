package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

type ConversationRepository interface {
	// FindOrCreatePair returns the active direct conversation between a and b,
	// creating it when none exists. created reports which happened.
	FindOrCreatePair(ctx context.Context, requester, other uint64) (conv *dbmysql.Conversation, created bool, err error)
	ByID(ctx context.Context, id string) (*dbmysql.Conversation, error)
	ListForUser(ctx context.Context, userID uint64) ([]*dbmysql.Conversation, error)
	Leave(ctx context.Context, conversationID string, userID uint64) error
	UnreadTotal(ctx context.Context, userID uint64) (int64, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) FindOrCreatePair(ctx context.Context, requester, other uint64) (*dbmysql.Conversation, bool, error) {
	key := dbmysql.PairKey(requester, other)

	conv, err := r.activateInPair(ctx, key, requester)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	conv = &dbmysql.Conversation{
		ID:       uuid.NewString(),
		PairKey:  &key,
		IsActive: true,
		Participants: []dbmysql.ConversationParticipant{
			{UserID: requester, IsActive: true, JoinedAt: now},
			{UserID: other, IsActive: true, JoinedAt: now},
		},
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		// lost a race against a concurrent create for the same pair
		if existing, findErr := r.activateInPair(ctx, key, requester); findErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create conversation: %w", err)
	}
	return conv, true, nil
}

// activateInPair looks up the active conversation for key and makes sure the
// requester is an active member of it again.
func (r *conversationRepo) activateInPair(ctx context.Context, key string, requester uint64) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("pair_key = ? AND is_active = ?", key, true).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find conversation by pair: %w", err)
		}

		if err := tx.Model(&dbmysql.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ? AND is_active = ?", conv.ID, requester, false).
			Update("is_active", true).Error; err != nil {
			return fmt.Errorf("reactivate participant: %w", err)
		}

		return tx.Where("conversation_id = ?", conv.ID).Find(&conv.Participants).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) ByID(ctx context.Context, id string) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation
	err := r.db.WithContext(ctx).Preload("Participants").Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("conversation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

func (r *conversationRepo) ListForUser(ctx context.Context, userID uint64) ([]*dbmysql.Conversation, error) {
	var convs []*dbmysql.Conversation

	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND cp.is_active = ? AND conversations.is_active = ?", userID, true, true).
		Preload("Participants").
		Order("conversations.updated_at DESC").
		Order("conversations.id").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations for user %d: %w", userID, err)
	}
	return convs, nil
}

func (r *conversationRepo) Leave(ctx context.Context, conversationID string, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&dbmysql.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ? AND is_active = ?", conversationID, userID, true).
			Updates(map[string]interface{}{"is_active": false, "unread_count": 0})
		if res.Error != nil {
			return fmt.Errorf("leave conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("conversation %s: %w", conversationID, common.ErrNotFound)
		}

		var remaining int64
		if err := tx.Model(&dbmysql.ConversationParticipant{}).
			Where("conversation_id = ? AND is_active = ?", conversationID, true).
			Count(&remaining).Error; err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if remaining > 0 {
			return nil
		}

		// nobody left: retire the conversation and free its pair key
		return tx.Model(&dbmysql.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"is_active":  false,
				"pair_key":   gorm.Expr("NULL"),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (r *conversationRepo) UnreadTotal(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.ConversationParticipant{}).
		Joins("JOIN conversations c ON c.id = conversation_participants.conversation_id").
		Where("conversation_participants.user_id = ? AND conversation_participants.is_active = ? AND c.is_active = ?",
			userID, true, true).
		Select("COALESCE(SUM(conversation_participants.unread_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("unread total for user %d: %w", userID, err)
	}
	return total, nil
}
