package fanout

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

// BusObserver publishes events to the user topic of every recipient.
type BusObserver struct {
	bus Bus
}

func NewBusObserver(bus Bus) *BusObserver {
	return &BusObserver{bus: bus}
}

func (o *BusObserver) Name() string { return "bus" }

func (o *BusObserver) Update(ctx context.Context, event Event) error {
	payload, err := event.Frame().Encode()
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event.Kind, err)
	}

	var errs []error
	for _, userID := range event.Recipients {
		if err := o.bus.Publish(ctx, UserTopic(userID), payload); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID uint64) (bool, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification *dbmysql.Notification) error
}

// OfflineObserver leaves a notification for chat message recipients with no
// live session, so they see it on their next poll.
type OfflineObserver struct {
	presence      PresenceChecker
	notifications NotificationStore
}

func NewOfflineObserver(presence PresenceChecker, notifications NotificationStore) *OfflineObserver {
	return &OfflineObserver{presence: presence, notifications: notifications}
}

func (o *OfflineObserver) Name() string { return "offline" }

func (o *OfflineObserver) Update(ctx context.Context, event Event) error {
	if event.Kind != KindChatMessage || event.Message == nil {
		return nil
	}

	var errs []error
	for _, userID := range event.Recipients {
		online, err := o.presence.IsOnline(ctx, userID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if online {
			continue
		}

		convID := event.ConversationID
		sender := event.ActorID
		n := &dbmysql.Notification{
			UserID:         userID,
			Type:           string(common.ChatMessageType),
			Header:         "New message",
			Content:        notificationPreview(event.Message),
			TriggerUserID:  &sender,
			ConversationID: &convID,
			Metadata: common.NotificationMetadata{
				"conversation_id": convID,
				"message_id":      strconv.FormatUint(event.Message.ID, 10),
				"seq":             event.Message.Seq,
			},
		}
		if err := o.notifications.Create(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func notificationPreview(msg *dbmysql.Message) string {
	const previewRunes = 140
	text := msg.Content
	if text == "" && len(msg.Attachments) > 0 {
		text = "Sent an attachment: " + msg.Attachments[0].FileName
	}
	if r := []rune(text); len(r) > previewRunes {
		return string(r[:previewRunes]) + "..."
	}
	return text
}
