package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"startupconnect/internal/chat/repository"
	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/fanout"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Publisher hands committed events to the fan-out layer without blocking.
type Publisher interface {
	NotifyAsync(event fanout.Event) bool
}

type AttachmentInput struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
}

type SendMessageInput struct {
	ConversationID string
	SenderID       uint64
	Content        string
	MessageType    string
	Attachments    []AttachmentInput
}

// ReadTarget selects what MarkRead acts on: a whole conversation, or every
// message up to and including MessageID.
type ReadTarget struct {
	ConversationID string
	MessageID      uint64
}

// ChatService defines the interface exposed to the transport layer
type ChatService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*dbmysql.Message, error)
	History(ctx context.Context, conversationID string, userID uint64, q repository.HistoryQuery) ([]*dbmysql.Message, error)
	MarkRead(ctx context.Context, target ReadTarget, readerID uint64) (*repository.ReadResult, error)
	Typing(ctx context.Context, conversationID string, userID uint64, isTyping bool) error
	UnreadTotal(ctx context.Context, userID uint64) (int64, error)
}

type chatService struct {
	convs     repository.ConversationRepository
	messages  repository.MessageRepository
	publisher Publisher
}

func NewChatService(convs repository.ConversationRepository, messages repository.MessageRepository, publisher Publisher) ChatService {
	return &chatService{convs: convs, messages: messages, publisher: publisher}
}

// SendMessage persists the message and then hands it to the fan-out layer.
// Once the store has committed the message the call succeeds, whatever
// happens to delivery.
func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*dbmysql.Message, error) {
	msg, err := buildMessage(in)
	if err != nil {
		return nil, err
	}

	recipients, err := s.messages.Append(ctx, msg)
	if err != nil {
		return nil, err
	}

	if len(recipients) > 0 {
		accepted := s.publisher.NotifyAsync(fanout.Event{
			Kind:           fanout.KindChatMessage,
			ConversationID: msg.ConversationID,
			ActorID:        msg.SenderID,
			Recipients:     recipients,
			Message:        msg,
		})
		if !accepted {
			log.Printf("chat: message %d stored but not queued for delivery: %v", msg.ID, common.ErrDeliveryFailure)
		}
	}
	return msg, nil
}

func buildMessage(in SendMessageInput) (*dbmysql.Message, error) {
	if strings.TrimSpace(in.ConversationID) == "" {
		return nil, fmt.Errorf("%w: conversation ID cannot be empty", common.ErrMalformedInput)
	}
	if in.SenderID == 0 {
		return nil, fmt.Errorf("%w: sender ID cannot be empty", common.ErrMalformedInput)
	}
	if err := common.ValidateMessageContent(in.Content, len(in.Attachments)); err != nil {
		return nil, err
	}

	msgType := in.MessageType
	switch msgType {
	case "":
		msgType = dbmysql.MessageTypeText
		if len(in.Attachments) > 0 {
			msgType = dbmysql.MessageTypeFile
		}
	case dbmysql.MessageTypeText, dbmysql.MessageTypeFile, dbmysql.MessageTypeSystem:
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", common.ErrMalformedInput, in.MessageType)
	}

	msg := &dbmysql.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		MessageType:    msgType,
	}
	for _, a := range in.Attachments {
		if a.FileID == "" || a.FileName == "" {
			return nil, fmt.Errorf("%w: attachment needs file_id and file_name", common.ErrMalformedInput)
		}
		msg.Attachments = append(msg.Attachments, dbmysql.MessageAttachment{
			FileID:   a.FileID,
			FileName: a.FileName,
			FileSize: a.FileSize,
			FileType: a.FileType,
		})
	}
	return msg, nil
}

func (s *chatService) History(ctx context.Context, conversationID string, userID uint64, q repository.HistoryQuery) ([]*dbmysql.Message, error) {
	if _, err := s.member(ctx, conversationID, userID); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, common.ErrNotFound)
		}
		return nil, err
	}

	if q.Limit <= 0 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	return s.messages.History(ctx, conversationID, q)
}

func (s *chatService) MarkRead(ctx context.Context, target ReadTarget, readerID uint64) (*repository.ReadResult, error) {
	convID := target.ConversationID
	var upTo uint64

	if target.MessageID != 0 {
		msg, err := s.messages.ByID(ctx, target.MessageID)
		if err != nil {
			return nil, err
		}
		if convID != "" && convID != msg.ConversationID {
			return nil, fmt.Errorf("message %d: %w", target.MessageID, common.ErrNotFound)
		}
		convID = msg.ConversationID
		upTo = msg.Seq
	}
	if convID == "" {
		return nil, fmt.Errorf("%w: conversation or message is required", common.ErrMalformedInput)
	}

	result, err := s.messages.MarkRead(ctx, convID, readerID, upTo)
	if err != nil {
		return nil, err
	}

	if result.MarkedCount > 0 {
		s.broadcast(ctx, fanout.Event{
			Kind:           fanout.KindReadReceipt,
			ConversationID: convID,
			ActorID:        readerID,
			UpToSeq:        result.LastReadSeq,
		})
	}
	return result, nil
}

// Typing is relayed to the other members and never stored.
func (s *chatService) Typing(ctx context.Context, conversationID string, userID uint64, isTyping bool) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversation ID cannot be empty", common.ErrMalformedInput)
	}
	conv, err := s.member(ctx, conversationID, userID)
	if err != nil {
		return err
	}

	s.publish(fanout.Event{
		Kind:           fanout.KindTyping,
		ConversationID: conversationID,
		ActorID:        userID,
		Recipients:     others(conv, userID),
		IsTyping:       isTyping,
	})
	return nil
}

func (s *chatService) UnreadTotal(ctx context.Context, userID uint64) (int64, error) {
	return s.convs.UnreadTotal(ctx, userID)
}

// member loads an active conversation and checks userID belongs to it.
func (s *chatService) member(ctx context.Context, conversationID string, userID uint64) (*dbmysql.Conversation, error) {
	conv, err := s.convs.ByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, common.ErrNotFound)
	}
	if !conv.IsParticipant(userID) {
		return nil, fmt.Errorf("user %d in conversation %s: %w", userID, conversationID, common.ErrUnauthorized)
	}
	return conv, nil
}

func (s *chatService) broadcast(ctx context.Context, event fanout.Event) {
	conv, err := s.convs.ByID(ctx, event.ConversationID)
	if err != nil {
		log.Printf("chat: %s for %s not sent: %v", event.Kind, event.ConversationID, err)
		return
	}
	event.Recipients = others(conv, event.ActorID)
	s.publish(event)
}

func (s *chatService) publish(event fanout.Event) {
	if len(event.Recipients) == 0 {
		return
	}
	if !s.publisher.NotifyAsync(event) {
		log.Printf("chat: %s for %s dropped: %v", event.Kind, event.ConversationID, common.ErrDeliveryFailure)
	}
}

func others(conv *dbmysql.Conversation, userID uint64) []uint64 {
	var ids []uint64
	for _, id := range conv.ActiveParticipantIDs() {
		if id != userID {
			ids = append(ids, id)
		}
	}
	return ids
}
