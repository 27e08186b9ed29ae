package user

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

// PresenceReader is the read side of presence.Tracker.
type PresenceReader interface {
	Status(ctx context.Context, userID uint64) (*dbmysql.UserPresence, error)
	OnlineUsers(ctx context.Context, limit int) ([]uint64, error)
}

// Handler serves registration, login, profile and presence lookups.
type Handler struct {
	userService UserService
	presence    PresenceReader
}

func NewHandler(userService UserService, presence PresenceReader) *Handler {
	return &Handler{userService: userService, presence: presence}
}

// RegisterPublic mounts the routes that do not need a token.
func (h *Handler) RegisterPublic(r *mux.Router) {
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

// RegisterAuthed mounts the routes behind common.RequireAuth.
func (h *Handler) RegisterAuthed(r *mux.Router) {
	r.HandleFunc("/users/me", h.me).Methods(http.MethodGet)
	r.HandleFunc("/users/online", h.online).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/presence", h.userPresence).Methods(http.MethodGet)
}

type authResponse struct {
	Token  string        `json:"token"`
	UserID uint64        `json:"user_id"`
	User   *dbmysql.User `json:"user"`
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type presenceResponse struct {
	UserID       uint64     `json:"user_id"`
	IsOnline     bool       `json:"is_online"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, token, err := h.userService.RegisterUser(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, UserID: user.UserID, User: user})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, token, err := h.userService.LoginUser(r.Context(), req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid handle or password"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, UserID: user.UserID, User: user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserIDFromContext(r.Context())
	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) online(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}
	ids, err := h.presence.OnlineUsers(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"user_ids": ids})
}

func (h *Handler) userPresence(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	p, err := h.presence.Status(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := presenceResponse{UserID: userID, IsOnline: p.IsOnline}
	if !p.LastActivity.IsZero() {
		last := p.LastActivity
		resp.LastActivity = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("user: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidArgument), errors.Is(err, common.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, common.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	default:
		log.Printf("user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
