// Package realtime runs live client sessions over WebSocket and gRPC streams.
package realtime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"startupconnect/internal/common"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var errSessionClosed = errors.New("session closed")

// Transport is the wire under a session. WriteFrame and Ping are only ever
// called from the session's writer goroutine.
type Transport interface {
	WriteFrame(payload []byte) error
	Ping() error
	Close(reason string) error
}

// Session is one authenticated client connection. Outbound frames go through a
// bounded queue drained by a single writer; a client that cannot keep up is
// disconnected rather than allowed to grow the queue.
type Session struct {
	id        string
	userID    uint64
	transport Transport

	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	leaveOnce  sync.Once
	state      atomic.Int32

	pingInterval time.Duration
}

func newSession(userID uint64, transport Transport, bufferSize int, pingInterval time.Duration) *Session {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	s := &Session{
		id:           uuid.NewString(),
		userID:       userID,
		transport:    transport,
		send:         make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		pingInterval: pingInterval,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() uint64 { return s.userID }

func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed once the session has left the Connected state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Deliver queues payload for the writer.
func (s *Session) Deliver(payload []byte) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}

	select {
	case <-s.done:
		return errSessionClosed
	case s.send <- payload:
		return nil
	default:
		s.Close("send buffer full")
		return fmt.Errorf("%w: session %s send buffer full", common.ErrDeliveryFailure, s.id)
	}
}

func (s *Session) start() {
	s.state.Store(int32(StateConnected))
	go s.writeLoop()
}

// Close moves the session to Disconnected and releases the transport.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateDisconnected))
		close(s.done)
		_ = s.transport.Close(reason)
	})
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)

	var tick <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			if err := s.transport.WriteFrame(payload); err != nil {
				s.Close("write failed")
				return
			}
		case <-tick:
			if err := s.transport.Ping(); err != nil {
				s.Close("ping failed")
				return
			}
		}
	}
}

// waitWriter blocks until the writer goroutine has exited. It must not be
// called from the writer itself.
func (s *Session) waitWriter(timeout time.Duration) {
	select {
	case <-s.writerDone:
	case <-time.After(timeout):
	}
}
