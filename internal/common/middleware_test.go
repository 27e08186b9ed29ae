package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestRequireAuth(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, "test")
	tok, err := tm.GenerateToken(7, "investor_bob")
	require.NoError(t, err)

	var seen uint64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAuth(tm)(next)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantUser   uint64
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized, 0},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, 0},
		{"header token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, http.StatusNoContent, 7},
		{"query token", func(r *http.Request) { r.URL.RawQuery = "token=" + tok }, http.StatusNoContent, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}

func TestAuthInterceptor(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, "test")
	tok, err := tm.GenerateToken(9, "startup_sam")
	require.NoError(t, err)

	interceptor := AuthInterceptor(tm)
	info := &grpc.UnaryServerInfo{FullMethod: "/startupconnect.chat.v1.ChatStream/SendMessage"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		id, _ := UserIDFromContext(ctx)
		return id, nil
	}

	_, err = interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Token "+tok))
	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), resp)
}
