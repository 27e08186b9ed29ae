package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startupconnect/internal/chat/handler/mocks"
	"startupconnect/internal/chat/repository"
	"startupconnect/internal/chat/service"
	"startupconnect/internal/common"
	"startupconnect/internal/dbmongo"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/dbmysql/dbtest"
)

type memoryBlobs struct {
	files map[string][]byte
	fail  error
}

func (m *memoryBlobs) Upload(ctx context.Context, filename, mimeType string, uploaderID uint64, content io.Reader) (*dbmongo.StoredFile, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	id := fmt.Sprintf("%024x", len(m.files)+1)
	m.files[id] = data
	return &dbmongo.StoredFile{
		ID: id, Filename: filename, Size: int64(len(data)), MimeType: mimeType,
		Kind: common.DetectAttachmentKind(mimeType), UploadedBy: uploaderID,
	}, nil
}

func (m *memoryBlobs) Open(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.StoredFile, error) {
	data, ok := m.files[fileID]
	if !ok {
		return nil, nil, common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &dbmongo.StoredFile{ID: fileID, Size: int64(len(data))}, nil
}

type fixture struct {
	dir           *mocks.MockDirectory
	chat          *mocks.MockChatService
	blobs         *memoryBlobs
	notifications dbmysql.NotificationRepository
	tokens        *common.TokenManager
	router        *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		dir:           mocks.NewMockDirectory(ctrl),
		chat:          mocks.NewMockChatService(ctrl),
		blobs:         &memoryBlobs{files: map[string][]byte{}},
		notifications: dbmysql.NewNotificationRepository(dbtest.Open(t)),
		tokens:        common.NewTokenManager("handler-secret", time.Hour, "startupconnect"),
	}

	h := NewChatHandler(f.dir, f.chat, f.blobs, f.notifications, "http://media.local/media")
	f.router = mux.NewRouter()
	api := f.router.PathPrefix("/api/v1").Subrouter()
	api.Use(common.RequireAuth(f.tokens))
	h.Register(api)
	return f
}

func (f *fixture) do(t *testing.T, userID uint64, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != 0 {
		tok, err := f.tokens.GenerateToken(userID, "caller")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doJSON(t *testing.T, userID uint64, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return f.do(t, userID, method, path, r, "application/json")
}

func pairConversation(a, b uint64, unreadForB int64) *dbmysql.Conversation {
	return &dbmysql.Conversation{
		ID:          "conv-1",
		IsActive:    true,
		LastMessage: "See you at demo day",
		LastSeq:     4,
		Participants: []dbmysql.ConversationParticipant{
			{ConversationID: "conv-1", UserID: a, IsActive: true},
			{ConversationID: "conv-1", UserID: b, IsActive: true, UnreadCount: unreadForB},
		},
	}
}

func TestChatHandler_RequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.doJSON(t, 0, http.MethodGet, "/api/v1/conversations", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatHandler_CreateConversation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		setup     func(f *fixture)
		wantCode  int
		wantID    string
		wantCount int64
	}{
		{
			name: "new conversation",
			body: `{"participant_id":2}`,
			setup: func(f *fixture) {
				f.dir.EXPECT().FindOrCreate(gomock.Any(), uint64(1), uint64(2)).Return(pairConversation(1, 2, 0), true, nil)
			},
			wantCode: http.StatusCreated,
			wantID:   "conv-1",
		},
		{
			name: "existing conversation",
			body: `{"participant_id":2}`,
			setup: func(f *fixture) {
				f.dir.EXPECT().FindOrCreate(gomock.Any(), uint64(1), uint64(2)).Return(pairConversation(2, 1, 3), false, nil)
			},
			wantCode:  http.StatusOK,
			wantID:    "conv-1",
			wantCount: 3,
		},
		{
			name: "self conversation",
			body: `{"participant_id":1}`,
			setup: func(f *fixture) {
				f.dir.EXPECT().FindOrCreate(gomock.Any(), uint64(1), uint64(1)).Return(nil, false, common.ErrInvalidArgument)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad body",
			body:     `{"participant_id":`,
			setup:    func(f *fixture) {},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			rec := f.doJSON(t, 1, http.MethodPost, "/api/v1/conversations", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantID != "" {
				var view ConversationView
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
				assert.Equal(t, tt.wantID, view.ID)
				assert.Equal(t, tt.wantCount, view.UnreadCount)
				assert.ElementsMatch(t, []uint64{1, 2}, view.Participants)
			}
		})
	}
}

func TestChatHandler_GetAndLeaveConversation(t *testing.T) {
	f := newFixture(t)
	f.dir.EXPECT().Get(gomock.Any(), "missing", uint64(1)).Return(nil, fmt.Errorf("conversation missing: %w", common.ErrNotFound))
	f.dir.EXPECT().Leave(gomock.Any(), "conv-1", uint64(1)).Return(nil)

	rec := f.doJSON(t, 1, http.MethodGet, "/api/v1/conversations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.doJSON(t, 1, http.MethodDelete, "/api/v1/conversations/conv-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChatHandler_Participants(t *testing.T) {
	f := newFixture(t)
	f.dir.EXPECT().Get(gomock.Any(), "conv-1", uint64(1)).Return(pairConversation(1, 2, 0), nil)
	f.dir.EXPECT().Participants(gomock.Any(), "conv-1").Return([]uint64{1, 2}, nil)
	f.dir.EXPECT().Get(gomock.Any(), "conv-1", uint64(9)).Return(nil, common.ErrNotFound)

	rec := f.doJSON(t, 1, http.MethodGet, "/api/v1/conversations/conv-1/participants", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []uint64{1, 2}, body["participants"])

	rec = f.doJSON(t, 9, http.MethodGet, "/api/v1/conversations/conv-1/participants", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatHandler_ListConversations(t *testing.T) {
	f := newFixture(t)
	f.dir.EXPECT().ListForUser(gomock.Any(), uint64(2)).Return([]*dbmysql.Conversation{pairConversation(1, 2, 5)}, nil)

	rec := f.doJSON(t, 2, http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []ConversationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, int64(5), views[0].UnreadCount)
	assert.Equal(t, "See you at demo day", views[0].LastMessage)
}

func TestChatHandler_SendMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"stored", `{"content":"Hello"}`, nil, http.StatusCreated},
		{"not a participant", `{"content":"Hello"}`, common.ErrUnauthorized, http.StatusForbidden},
		{"blank", `{"content":""}`, common.ErrMalformedInput, http.StatusBadRequest},
		{"store failure", `{"content":"Hello"}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var stored *dbmysql.Message
			if tt.err == nil {
				stored = &dbmysql.Message{ID: 9, ConversationID: "conv-1", Seq: 1, SenderID: 1, Content: "Hello", MessageType: dbmysql.MessageTypeText}
			}
			f.chat.EXPECT().
				SendMessage(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, in service.SendMessageInput) (*dbmysql.Message, error) {
					assert.Equal(t, "conv-1", in.ConversationID)
					assert.Equal(t, uint64(1), in.SenderID)
					return stored, tt.err
				})

			rec := f.doJSON(t, 1, http.MethodPost, "/api/v1/conversations/conv-1/messages", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "db down")
			}
		})
	}
}

func TestChatHandler_HistoryParsesCursor(t *testing.T) {
	f := newFixture(t)
	f.chat.EXPECT().
		History(gomock.Any(), "conv-1", uint64(1), repository.HistoryQuery{AfterSeq: 5, Limit: 20}).
		Return(nil, nil)

	rec := f.doJSON(t, 1, http.MethodGet, "/api/v1/conversations/conv-1/messages?after_seq=5&limit=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestChatHandler_MarkRead(t *testing.T) {
	f := newFixture(t)
	f.chat.EXPECT().
		MarkRead(gomock.Any(), service.ReadTarget{ConversationID: "conv-1"}, uint64(2)).
		Return(&repository.ReadResult{MarkedCount: 3, LastReadSeq: 7, UnreadCount: 0}, nil)
	f.chat.EXPECT().
		MarkRead(gomock.Any(), service.ReadTarget{MessageID: 42}, uint64(2)).
		Return(&repository.ReadResult{MarkedCount: 0, LastReadSeq: 7, UnreadCount: 0}, nil)

	rec := f.doJSON(t, 2, http.MethodPost, "/api/v1/conversations/conv-1/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked_count":3,"last_read_seq":7,"unread_count":0}`, rec.Body.String())

	rec = f.doJSON(t, 2, http.MethodPost, "/api/v1/messages/42/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked_count":0,"last_read_seq":7,"unread_count":0}`, rec.Body.String())
}

func TestChatHandler_UnreadCount(t *testing.T) {
	f := newFixture(t)
	f.chat.EXPECT().UnreadTotal(gomock.Any(), uint64(2)).Return(int64(11), nil)

	rec := f.doJSON(t, 2, http.MethodGet, "/api/v1/messages/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count":11}`, rec.Body.String())
}

func TestChatHandler_UploadAttachment(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "pitch.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 deck"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := f.do(t, 1, http.MethodPost, "/api/v1/attachments", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp attachmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pitch.pdf", resp.FileName)
	assert.Equal(t, int64(len("%PDF-1.7 deck")), resp.FileSize)
	assert.Equal(t, "http://media.local/media/"+resp.FileID, resp.URL)
	assert.Contains(t, f.blobs.files, resp.FileID)

	rec = f.do(t, 1, http.MethodPost, "/api/v1/attachments", strings.NewReader("nope"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_Notifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := "conv-1"

	n := &dbmysql.Notification{UserID: 2, Type: string(common.ChatMessageType), Header: "New message", Content: "Hello", ConversationID: &convID}
	require.NoError(t, f.notifications.Create(ctx, n))
	require.NoError(t, f.notifications.Create(ctx, &dbmysql.Notification{UserID: 3, Type: string(common.ChatMessageType), Header: "New message"}))

	rec := f.doJSON(t, 2, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []common.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Hello", items[0].Content)

	rec = f.doJSON(t, 3, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.doJSON(t, 2, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	unread, err := f.notifications.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
