package realtime

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"startupconnect/internal/common"
	"startupconnect/internal/config"
	"startupconnect/internal/presence"
)

const writeWait = 10 * time.Second

type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (t *wsTransport) WriteFrame(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *wsTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t *wsTransport) Close(reason string) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return t.conn.Close()
}

// WSHandler upgrades authenticated requests on /ws into sessions.
type WSHandler struct {
	gateway  *Gateway
	tokens   common.TokenValidator
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(gateway *Gateway, tokens common.TokenValidator, cfg config.RealtimeConfig, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		gateway: gateway,
		tokens:  tokens,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts any origin when no allow-list is configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.ValidToken(common.RequestToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.gateway.logger.Printf("websocket upgrade for user %d: %v", claims.UserID, err)
		return
	}

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}
	h.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		h.extendDeadline(conn)
		return nil
	})

	ctx := common.WithUser(r.Context(), claims.UserID, claims.Handle)
	s := h.gateway.Connect(ctx, claims.UserID, requestOrigin(r), &wsTransport{conn: conn})
	defer h.gateway.Disconnect(s)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.gateway.logger.Printf("session %s read: %v", s.ID(), err)
			}
			return
		}
		h.extendDeadline(conn)
		if mt != websocket.TextMessage {
			continue
		}
		h.gateway.HandleInbound(ctx, s, data)
	}
}

func (h *WSHandler) extendDeadline(conn *websocket.Conn) {
	if h.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	}
}

func requestOrigin(r *http.Request) presence.Origin {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}
	return presence.Origin{IPAddress: ip, UserAgent: r.UserAgent()}
}
