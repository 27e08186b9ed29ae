package service

import (
	"context"
	"fmt"

	"startupconnect/internal/chat/repository"
	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

//go:generate mockgen -destination=mocks/mock_deps.go -package=mocks startupconnect/internal/chat/service UserLookup,Publisher
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks startupconnect/internal/chat/repository ConversationRepository,MessageRepository

// UserLookup answers whether an account exists and may take part in chats.
type UserLookup interface {
	Exists(ctx context.Context, userID uint64) (bool, error)
}

// Directory finds conversations and their members.
type Directory interface {
	FindOrCreate(ctx context.Context, requester, other uint64) (*dbmysql.Conversation, bool, error)
	ListForUser(ctx context.Context, userID uint64) ([]*dbmysql.Conversation, error)
	// Get returns the conversation if userID is an active member of it.
	Get(ctx context.Context, conversationID string, userID uint64) (*dbmysql.Conversation, error)
	Leave(ctx context.Context, conversationID string, userID uint64) error
	// Participants lists the ids of members who have not left.
	Participants(ctx context.Context, conversationID string) ([]uint64, error)
}

type directory struct {
	convs repository.ConversationRepository
	users UserLookup
}

func NewDirectory(convs repository.ConversationRepository, users UserLookup) Directory {
	return &directory{convs: convs, users: users}
}

func (d *directory) FindOrCreate(ctx context.Context, requester, other uint64) (*dbmysql.Conversation, bool, error) {
	if requester == 0 || other == 0 {
		return nil, false, fmt.Errorf("%w: participant id is required", common.ErrMalformedInput)
	}
	if requester == other {
		return nil, false, fmt.Errorf("%w: cannot start a conversation with yourself", common.ErrInvalidArgument)
	}

	for _, id := range []uint64{requester, other} {
		ok, err := d.users.Exists(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("look up user %d: %w", id, err)
		}
		if !ok {
			return nil, false, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
		}
	}

	return d.convs.FindOrCreatePair(ctx, requester, other)
}

func (d *directory) ListForUser(ctx context.Context, userID uint64) ([]*dbmysql.Conversation, error) {
	return d.convs.ListForUser(ctx, userID)
}

func (d *directory) Get(ctx context.Context, conversationID string, userID uint64) (*dbmysql.Conversation, error) {
	conv, err := d.convs.ByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive || !conv.IsParticipant(userID) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, common.ErrNotFound)
	}
	return conv, nil
}

func (d *directory) Leave(ctx context.Context, conversationID string, userID uint64) error {
	return d.convs.Leave(ctx, conversationID, userID)
}

func (d *directory) Participants(ctx context.Context, conversationID string) ([]uint64, error) {
	conv, err := d.convs.ByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conv.ActiveParticipantIDs(), nil
}
