package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/agent-console-go/internal/errors"
)

// Status is the observable connection state of a Session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

type identifyFrame struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId"`
	Token   string `json:"token"`
}

type userMessageFrame struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId"`
	Text    string `json:"text"`
}

type inboundFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Delta     string `json:"delta"`
	MessageID string `json:"messageId"`
}

// Options configures a Session. URL and TokenSource are required; the rest
// default sensibly.
type Options struct {
	// URL is the gateway's streaming WebSocket endpoint.
	URL string

	// TokenSource issues a fresh credential for every connection attempt.
	TokenSource TokenSource

	// Reconnect defaults to the flat three second policy.
	Reconnect ReconnectPolicy

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	OnStatus     func(Status)
	OnError      func(message string)
	OnTranscript func([]Message)
}

// Session is one live connection from a caller to the gateway for a given
// agent. It owns its transport handle, transcript, and reconnect timer; one
// Session per chat surface, disposed with Close.
//
// Lifecycle: Open moves idle→connecting→connected. An unexpected transport
// close drops back to idle and a reconnect runs the whole sequence again
// with a fresh credential. A credential failure is terminal until the caller
// calls Open again.
type Session struct {
	opts Options

	mu             sync.Mutex
	status         Status
	conn           *websocket.Conn
	agentID        string
	transcript     *Transcript
	reconnectTimer *time.Timer
	attempt        int
	gen            int
	closed         bool
}

func New(opts Options) (*Session, error) {
	if opts.URL == "" {
		return nil, apperrors.Configuration("gateway WebSocket URL is not set")
	}
	if opts.TokenSource == nil {
		return nil, apperrors.Configuration("token source is not set")
	}
	if opts.Reconnect == nil {
		opts.Reconnect = DefaultReconnect()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	return &Session{
		opts:       opts,
		status:     StatusIdle,
		transcript: NewTranscript(),
	}, nil
}

// Open starts a connection attempt. It returns immediately; callers observe
// progress through OnStatus.
func (s *Session) Open() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopReconnectLocked()
	s.gen++
	gen := s.gen
	s.status = StatusConnecting
	s.mu.Unlock()

	s.fireStatus(StatusConnecting)
	go s.connect(gen)
}

// connect runs one full attempt: fresh credential, dial, identify. gen guards
// against acting on results that arrive after the Session moved on.
func (s *Session) connect(gen int) {
	cred, err := s.opts.TokenSource.ChatToken(context.Background())

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if err != nil {
		// No automatic retry on credential failure; the caller re-opens.
		s.status = StatusError
		s.mu.Unlock()
		s.fireStatus(StatusError)
		s.fireError(fmt.Sprintf("failed to get chat token: %v", err))
		return
	}
	s.mu.Unlock()

	conn, resp, dialErr := s.opts.Dialer.Dial(s.opts.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if dialErr != nil {
		s.status = StatusError
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		s.fireStatus(StatusError)
		s.fireError(fmt.Sprintf("gateway connection failed: %v", dialErr))
		return
	}

	s.conn = conn
	s.agentID = cred.AgentID

	// Fire-and-forget: the gateway rejects a bad credential by closing the
	// connection, which surfaces through the read loop.
	identify := identifyFrame{Type: "identify", AgentID: cred.AgentID, Token: cred.Token}
	if err := conn.WriteJSON(identify); err != nil {
		s.conn = nil
		s.status = StatusIdle
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		conn.Close()
		s.fireStatus(StatusIdle)
		return
	}

	s.attempt = 0
	s.status = StatusConnected
	s.mu.Unlock()

	s.fireStatus(StatusConnected)
	log.Debug().Str("agentId", cred.AgentID).Msg("session connected")

	go s.readLoop(gen, conn)
}

func (s *Session) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(gen)
			return
		}
		s.handleFrame(data)
	}
}

// handleClose reacts to an unexpected transport close: back to idle and a
// scheduled retry. Messages in flight at the time of the close are lost;
// there is no acknowledgement or resend.
func (s *Session) handleClose(gen int) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.status = StatusIdle
	s.scheduleReconnectLocked()
	s.mu.Unlock()

	s.fireStatus(StatusIdle)
	log.Debug().Msg("session disconnected, reconnect scheduled")
}

// scheduleReconnectLocked arms the reconnect timer. Bumping gen invalidates
// every outstanding goroutine from the previous connection.
func (s *Session) scheduleReconnectLocked() {
	attempt := s.attempt
	s.attempt++
	s.gen++
	gen := s.gen

	delay := s.opts.Reconnect.NextDelay(attempt)
	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closed || gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.status = StatusConnecting
		s.mu.Unlock()
		s.fireStatus(StatusConnecting)
		s.connect(gen)
	})
}

func (s *Session) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		// Non-JSON frames are ignored; a malformed frame never tears the
		// connection down.
		return
	}

	switch frame.Type {
	case "assistant_delta":
		if frame.Delta == "" {
			return
		}
		s.mu.Lock()
		s.transcript.ApplyDelta(frame.MessageID, frame.Delta)
		msgs := s.transcript.Messages()
		s.mu.Unlock()
		s.fireTranscript(msgs)

	case "assistant_message":
		if frame.Text == "" {
			return
		}
		s.mu.Lock()
		s.transcript.AppendAssistant(frame.MessageID, frame.Text)
		msgs := s.transcript.Messages()
		s.mu.Unlock()
		s.fireTranscript(msgs)

	case "error":
		// Surfaced as a banner; the connection stays up.
		if frame.Text != "" {
			s.fireError(frame.Text)
		}

	default:
		// Unrecognized types are ignored.
	}
}

// Send transmits one user turn. The message is echoed into the transcript
// before transmission. Returns NotConnected unless the session is connected.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	if s.status != StatusConnected || s.conn == nil {
		s.mu.Unlock()
		return apperrors.NotConnected()
	}

	s.transcript.AppendUser(text)
	msgs := s.transcript.Messages()

	frame := userMessageFrame{Type: "user_message", AgentID: s.agentID, Text: text}
	err := s.conn.WriteJSON(frame)
	s.mu.Unlock()

	s.fireTranscript(msgs)

	if err != nil {
		// The read loop observes the same broken transport and drives the
		// reconnect; callers just learn this turn did not go out.
		return fmt.Errorf("send user message: %w", err)
	}
	return nil
}

// Close tears the session down for good: pending reconnects are cancelled
// and the transport is closed. A closed Session cannot be reopened.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.stopReconnectLocked()
	conn := s.conn
	s.conn = nil
	s.status = StatusIdle
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (s *Session) stopReconnectLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

// Status returns the current connection state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Messages()
}

func (s *Session) fireStatus(status Status) {
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(status)
	}
}

func (s *Session) fireError(message string) {
	if s.opts.OnError != nil {
		s.opts.OnError(message)
	}
}

func (s *Session) fireTranscript(msgs []Message) {
	if s.opts.OnTranscript != nil {
		s.opts.OnTranscript(msgs)
	}
}
