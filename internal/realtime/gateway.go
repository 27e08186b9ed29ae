package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"startupconnect/internal/chat/service"
	"startupconnect/internal/common"
	"startupconnect/internal/config"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/fanout"
	"startupconnect/internal/presence"
)

const presenceTimeout = 5 * time.Second

type PresenceTracker interface {
	SetOnline(ctx context.Context, userID uint64, origin presence.Origin) error
	SetOffline(ctx context.Context, userID uint64) error
}

// Inbound is a frame sent by a client.
type Inbound struct {
	Type           string                    `json:"type"`
	ConversationID string                    `json:"conversation_id"`
	Content        string                    `json:"content,omitempty"`
	MessageType    string                    `json:"message_type,omitempty"`
	Attachments    []service.AttachmentInput `json:"attachments,omitempty"`
	IsTyping       bool                      `json:"is_typing,omitempty"`
	MessageID      uint64                    `json:"message_id,omitempty"`
}

func (in Inbound) sendInput(senderID uint64) service.SendMessageInput {
	return service.SendMessageInput{
		ConversationID: in.ConversationID,
		SenderID:       senderID,
		Content:        in.Content,
		MessageType:    in.MessageType,
		Attachments:    in.Attachments,
	}
}

// Gateway owns the session lifecycle: presence, bus subscription and routing
// of inbound frames to the chat service.
type Gateway struct {
	chat     service.ChatService
	bus      fanout.Bus
	presence PresenceTracker
	cfg      config.RealtimeConfig
	logger   *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewGateway(chat service.ChatService, bus fanout.Bus, presence PresenceTracker, cfg config.RealtimeConfig) *Gateway {
	return &Gateway{
		chat:     chat,
		bus:      bus,
		presence: presence,
		cfg:      cfg,
		logger:   common.NewLogger("[REALTIME] "),
		sessions: make(map[string]*Session),
	}
}

// Connect takes an authenticated transport to Connected. A presence failure is
// logged and does not refuse the session.
func (g *Gateway) Connect(ctx context.Context, userID uint64, origin presence.Origin, transport Transport) *Session {
	s := newSession(userID, transport, g.cfg.SendBufferSize, g.cfg.PingInterval)

	pctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	if err := g.presence.SetOnline(pctx, userID, origin); err != nil {
		g.logger.Printf("set online for user %d: %v", userID, err)
	}
	cancel()

	g.bus.Subscribe(fanout.UserTopic(userID), s)

	g.mu.Lock()
	g.sessions[s.id] = s
	g.mu.Unlock()

	s.start()
	g.logger.Printf("session %s connected for user %d (%s)", s.id, userID, common.HandleFromContext(ctx))
	return s
}

// Disconnect tears a session down exactly once, however it ended.
func (g *Gateway) Disconnect(s *Session) {
	s.leaveOnce.Do(func() {
		g.bus.Unsubscribe(fanout.UserTopic(s.userID), s)

		g.mu.Lock()
		delete(g.sessions, s.id)
		g.mu.Unlock()

		s.Close("")
		s.waitWriter(time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		if err := g.presence.SetOffline(ctx, s.userID); err != nil {
			g.logger.Printf("set offline for user %d: %v", s.userID, err)
		}
		g.logger.Printf("session %s disconnected for user %d", s.id, s.userID)
	})
}

// HandleInbound routes one client frame. Frames that cannot be decoded, or
// that carry an unknown type, are dropped without a reply.
func (g *Gateway) HandleInbound(ctx context.Context, s *Session, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return
	}

	var err error
	switch fanout.Kind(in.Type) {
	case fanout.KindChatMessage:
		var stored *dbmysql.Message
		stored, err = g.chat.SendMessage(ctx, in.sendInput(s.userID))
		if err == nil {
			g.reply(s, fanout.AckFrame(stored))
		}
	case fanout.KindTyping:
		err = g.chat.Typing(ctx, in.ConversationID, s.userID, in.IsTyping)
	case fanout.KindReadReceipt, "mark_read":
		_, err = g.chat.MarkRead(ctx, service.ReadTarget{ConversationID: in.ConversationID, MessageID: in.MessageID}, s.userID)
	default:
		return
	}

	if err != nil {
		g.replyError(s, err)
	}
}

func (g *Gateway) replyError(s *Session, err error) {
	code, msg := errorCode(err)
	if code == "" {
		return
	}
	if code == "internal" {
		g.logger.Printf("session %s: %v", s.id, err)
	}
	g.reply(s, fanout.ErrorFrame(code, msg))
}

// errorCode maps service errors onto socket error frames. Malformed input maps
// to no frame at all.
func errorCode(err error) (code, message string) {
	switch {
	case errors.Is(err, common.ErrMalformedInput):
		return "", ""
	case errors.Is(err, common.ErrNotFound):
		return "not_found", "conversation not found"
	case errors.Is(err, common.ErrUnauthorized):
		return "unauthorized", "not a participant of this conversation"
	case errors.Is(err, common.ErrInvalidArgument):
		return "invalid_argument", err.Error()
	default:
		return "internal", "internal error"
	}
}

func (g *Gateway) reply(s *Session, frame fanout.Outbound) {
	payload, err := frame.Encode()
	if err != nil {
		g.logger.Printf("encode %s frame: %v", frame.Type, err)
		return
	}
	if err := s.Deliver(payload); err != nil {
		g.logger.Printf("reply to session %s: %v", s.id, err)
	}
}

func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Shutdown disconnects every live session.
func (g *Gateway) Shutdown() {
	g.mu.RLock()
	sessions := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.mu.RUnlock()

	for _, s := range sessions {
		g.Disconnect(s)
	}
}
