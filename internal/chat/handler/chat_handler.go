// Package handler serves the REST catch-up API for conversations, messages,
// attachments and offline notifications.
package handler

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks startupconnect/internal/chat/service ChatService,Directory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"startupconnect/internal/chat/repository"
	"startupconnect/internal/chat/service"
	"startupconnect/internal/common"
	"startupconnect/internal/dbmongo"
	"startupconnect/internal/dbmysql"
)

const maxUploadBytes = 25 << 20

// BlobStore keeps attachment binaries. dbmongo.AttachmentStorage implements it.
type BlobStore interface {
	Upload(ctx context.Context, filename, mimeType string, uploaderID uint64, content io.Reader) (*dbmongo.StoredFile, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.StoredFile, error)
}

type ChatHandler struct {
	directory     service.Directory
	chat          service.ChatService
	blobs         BlobStore
	notifications dbmysql.NotificationRepository
	mediaBaseURL  string
}

func NewChatHandler(directory service.Directory, chat service.ChatService, blobs BlobStore, notifications dbmysql.NotificationRepository, mediaBaseURL string) *ChatHandler {
	return &ChatHandler{
		directory:     directory,
		chat:          chat,
		blobs:         blobs,
		notifications: notifications,
		mediaBaseURL:  mediaBaseURL,
	}
}

// Register mounts the routes on a router that already runs common.RequireAuth.
func (h *ChatHandler) Register(r *mux.Router) {
	r.HandleFunc("/conversations", h.listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations", h.createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}", h.getConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", h.leaveConversation).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{id}/participants", h.participants).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", h.history).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", h.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/read", h.markConversationRead).Methods(http.MethodPost)
	r.HandleFunc("/messages/unread-count", h.unreadCount).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id:[0-9]+}/read", h.markMessageRead).Methods(http.MethodPost)
	r.HandleFunc("/attachments", h.uploadAttachment).Methods(http.MethodPost)
	r.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id:[0-9]+}/read", h.markNotificationRead).Methods(http.MethodPost)
}

// ConversationView is a conversation as one participant sees it.
type ConversationView struct {
	ID              string     `json:"id"`
	Participants    []uint64   `json:"participants"`
	LastMessage     string     `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
	LastSeq         uint64     `json:"last_seq"`
	UnreadCount     int64      `json:"unread_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func viewFor(conv *dbmysql.Conversation, userID uint64) ConversationView {
	return ConversationView{
		ID:              conv.ID,
		Participants:    conv.ActiveParticipantIDs(),
		LastMessage:     conv.LastMessage,
		LastMessageTime: conv.LastMessageAt,
		LastSeq:         conv.LastSeq,
		UnreadCount:     conv.UnreadCounts()[userID],
		CreatedAt:       conv.CreatedAt,
		UpdatedAt:       conv.UpdatedAt,
	}
}

type createConversationRequest struct {
	ParticipantID uint64 `json:"participant_id"`
}

type sendMessageRequest struct {
	Content     string                    `json:"content"`
	MessageType string                    `json:"message_type"`
	Attachments []service.AttachmentInput `json:"attachments"`
}

type readResponse struct {
	MarkedCount int64  `json:"marked_count"`
	LastReadSeq uint64 `json:"last_read_seq"`
	UnreadCount int64  `json:"unread_count"`
}

type attachmentResponse struct {
	FileID   string                `json:"file_id"`
	FileName string                `json:"file_name"`
	FileSize int64                 `json:"file_size"`
	FileType string                `json:"file_type"`
	Kind     common.AttachmentKind `json:"kind"`
	URL      string                `json:"url"`
}

func (h *ChatHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	convs, err := h.directory.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, viewFor(c, userID))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ChatHandler) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	userID := currentUser(r)
	conv, created, err := h.directory.FindOrCreate(r.Context(), userID, req.ParticipantID)
	if err != nil {
		writeError(w, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, viewFor(conv, userID))
}

func (h *ChatHandler) getConversation(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	conv, err := h.directory.Get(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFor(conv, userID))
}

func (h *ChatHandler) participants(w http.ResponseWriter, r *http.Request) {
	convID := mux.Vars(r)["id"]
	if _, err := h.directory.Get(r.Context(), convID, currentUser(r)); err != nil {
		writeError(w, err)
		return
	}
	ids, err := h.directory.Participants(r.Context(), convID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"participants": ids})
}

func (h *ChatHandler) leaveConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.Leave(r.Context(), mux.Vars(r)["id"], currentUser(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := repository.HistoryQuery{
		AfterSeq:  parseUint(q.Get("after_seq")),
		BeforeSeq: parseUint(q.Get("before_seq")),
		Limit:     int(parseUint(q.Get("limit"))),
	}

	msgs, err := h.chat.History(r.Context(), mux.Vars(r)["id"], currentUser(r), query)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*dbmysql.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *ChatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), service.SendMessageInput{
		ConversationID: mux.Vars(r)["id"],
		SenderID:       currentUser(r),
		Content:        req.Content,
		MessageType:    req.MessageType,
		Attachments:    req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) markConversationRead(w http.ResponseWriter, r *http.Request) {
	h.markRead(w, r, service.ReadTarget{ConversationID: mux.Vars(r)["id"]})
}

func (h *ChatHandler) markMessageRead(w http.ResponseWriter, r *http.Request) {
	h.markRead(w, r, service.ReadTarget{MessageID: parseUint(mux.Vars(r)["id"])})
}

func (h *ChatHandler) markRead(w http.ResponseWriter, r *http.Request, target service.ReadTarget) {
	result, err := h.chat.MarkRead(r.Context(), target, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{
		MarkedCount: result.MarkedCount,
		LastReadSeq: result.LastReadSeq,
		UnreadCount: result.UnreadCount,
	})
}

func (h *ChatHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	total, err := h.chat.UnreadTotal(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": total})
}

func (h *ChatHandler) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "attachment storage is disabled"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	stored, err := h.blobs.Upload(r.Context(), header.Filename, mimeType, currentUser(r), file)
	if err != nil {
		log.Printf("attachment upload %q: %v", header.Filename, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, attachmentResponse{
		FileID:   stored.ID,
		FileName: stored.Filename,
		FileSize: stored.Size,
		FileType: stored.MimeType,
		Kind:     stored.Kind,
		URL:      h.mediaBaseURL + "/" + stored.ID,
	})
}

func (h *ChatHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := int(parseUint(q.Get("limit")))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := int(parseUint(q.Get("offset")))

	items, err := h.notifications.ByUserID(r.Context(), currentUser(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]*common.NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, n.ToResponse())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := parseUint(mux.Vars(r)["id"])
	if err := h.notifications.MarkAsRead(r.Context(), id, currentUser(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func currentUser(r *http.Request) uint64 {
	id, _ := common.UserIDFromContext(r.Context())
	return id
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, common.ErrMalformedInput), errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("chat handler: %v", err)
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}
