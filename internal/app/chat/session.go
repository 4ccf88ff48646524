/*
This file defines the Session struct, representing an active WebSocket connection
into a room. A session bridges the store subscriptions (messages, presence,
typing) onto the socket as JSON envelopes, and feeds inbound client events back
into the domain services. It manages the connection lifecycle and the message
communication loops (ReadPump and WritePump).
*/
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"geochat/internal/app/store"
	"geochat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxInboundSize = 8192

	// teardownTimeout bounds the store writes performed while disconnecting.
	teardownTimeout = 5 * time.Second
)

// Envelope types pushed to the client.
const (
	EnvelopeMessages = "messages"
	EnvelopePresence = "presence"
	EnvelopeTyping   = "typing"
	EnvelopeError    = "error"
)

// Inbound event types accepted from the client.
const (
	InboundMessage = "message"
	InboundTyping  = "typing"
)

// Session represents an active WebSocket connection and its associated user.
type Session struct {
	roomID   string
	userID   string
	userName string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	channel  *Channel
	presence *Presence
	typing   *Typing

	// debouncer collapses the client's typing keystroke events into
	// indicator writes.
	debouncer *Debouncer

	// a buffered channel used to queue outbound frames waiting to be sent.
	send chan []byte

	// cancels holds the store subscription cancel functions for teardown.
	cancels []store.CancelFunc

	// structured logger with session and room context.
	logger zerolog.Logger
}

// NewSession constructs a Session over an upgraded connection.
func NewSession(
	conn *websocket.Conn,
	roomID, userID, userName string,
	channel *Channel,
	presence *Presence,
	typing *Typing,
) *Session {
	sessionLogger := logx.Logger().With().
		Str("user_id", userID).
		Str("room_id", roomID).
		Logger()

	return &Session{
		roomID:    roomID,
		userID:    userID,
		userName:  userName,
		conn:      conn,
		channel:   channel,
		presence:  presence,
		typing:    typing,
		debouncer: NewDebouncer(typing, roomID, userID, userName),
		send:      make(chan []byte, 256),
		logger:    sessionLogger,
	}
}

// Run drives the session to completion. It marks the user online, opens the
// room subscriptions, starts the write loop, and blocks in the read loop until
// the peer disconnects. All room state the session wrote is withdrawn before
// Run returns.
func (s *Session) Run(ctx context.Context) {
	s.presence.SetPresence(ctx, s.roomID, s.userID, s.userName, StatusOnline)

	if err := s.subscribeAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to open room subscriptions")
		s.teardown()
		return
	}

	go s.WritePump()

	s.logger.Info().Msg("Session established")
	s.ReadPump(ctx)

	s.teardown()
}

// subscribeAll opens the three room subscriptions, each pushing a typed
// envelope onto the send queue whenever the store reports a change.
func (s *Session) subscribeAll(ctx context.Context) error {
	cancelMessages, customErr := s.channel.Subscribe(ctx, s.roomID, func(messages []Message) {
		s.pushEnvelope(EnvelopeMessages, map[string]any{"messages": messages})
	})
	if customErr != nil {
		return customErr
	}
	s.cancels = append(s.cancels, cancelMessages)

	cancelPresence, customErr := s.presence.Subscribe(ctx, s.roomID, func(records []PresenceRecord) {
		s.pushEnvelope(EnvelopePresence, map[string]any{"users": records})
	})
	if customErr != nil {
		return customErr
	}
	s.cancels = append(s.cancels, cancelPresence)

	cancelTyping, customErr := s.typing.Subscribe(ctx, s.roomID, func(records []TypingRecord) {
		s.pushEnvelope(EnvelopeTyping, map[string]any{"users": records})
	})
	if customErr != nil {
		return customErr
	}
	s.cancels = append(s.cancels, cancelTyping)

	return nil
}

// teardown cancels the subscriptions and withdraws the session's presence and
// typing indicator. Store writes here use a fresh context so they still run
// when the request context is already dead.
func (s *Session) teardown() {
	for _, cancel := range s.cancels {
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	s.debouncer.Stop(ctx)
	s.presence.SetPresence(ctx, s.roomID, s.userID, s.userName, StatusOffline)

	s.logger.Info().Msg("Session closed")
}

// ReadPump handles reading events from the WebSocket connection.
// It handles heartbeats (Pong) and event parsing, and returns upon connection closure.
func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error")
		}
	}()

	s.conn.SetReadLimit(maxInboundSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, eventBytes, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading event (client close/going away)")
			}
			return
		}

		s.processInboundEvent(ctx, eventBytes)
	}
}

// processInboundEvent handles raw byte events received from the client.
func (s *Session) processInboundEvent(ctx context.Context, eventBytes []byte) {
	var inbound struct {
		Type        string   `json:"type"`
		Text        string   `json:"text,omitempty"`
		Attachments []string `json:"attachments,omitempty"`
		IsTyping    bool     `json:"isTyping,omitempty"`
	}

	if err := json.Unmarshal(eventBytes, &inbound); err != nil {
		s.logger.Warn().Err(err).
			Bytes("event_bytes", eventBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch inbound.Type {
	case InboundMessage:
		s.handleMessage(ctx, inbound.Text, inbound.Attachments)

	case InboundTyping:
		s.handleTyping(ctx, inbound.IsTyping)

	default:
		s.logger.Warn().Str("event_type", inbound.Type).Msg("Client sent unsupported event type")
	}
}

// handleMessage posts a message into the room on behalf of the session user.
func (s *Session) handleMessage(ctx context.Context, text string, attachments []string) {
	if customErr := ValidateMessageText(text, len(attachments) > 0); customErr != nil {
		s.pushError(customErr.Code, customErr.Message)
		return
	}

	if customErr := ValidateAttachmentKeys(s.roomID, attachments); customErr != nil {
		s.pushError(customErr.Code, customErr.Message)
		return
	}

	if _, customErr := s.channel.Send(ctx, s.roomID, s.userID, s.userName, text, attachments); customErr != nil {
		s.pushError(customErr.Code, customErr.Message)
		return
	}

	// A sent message ends the typing indicator immediately.
	s.debouncer.Stop(ctx)
}

// handleTyping feeds a keystroke event through the debouncer.
func (s *Session) handleTyping(ctx context.Context, isTyping bool) {
	if isTyping {
		s.debouncer.Touch(ctx)
	} else {
		s.debouncer.Stop(ctx)
	}
}

// pushEnvelope marshals a typed envelope and queues it for the write loop.
// A full queue drops the frame; the next snapshot supersedes it anyway.
func (s *Session) pushEnvelope(envelopeType string, payload map[string]any) {
	frame := make(map[string]any, len(payload)+1)
	frame["type"] = envelopeType
	for k, v := range payload {
		frame[k] = v
	}

	frameBytes, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error().Err(err).Str("envelope_type", envelopeType).Msg("Error marshaling envelope")
		return
	}

	select {
	case s.send <- frameBytes:
	default:
		s.logger.Warn().
			Int("queue_len", len(s.send)).
			Str("envelope_type", envelopeType).
			Msg("Session send queue full, dropping frame")
	}
}

// pushError queues an error envelope for the client.
func (s *Session) pushError(code int, message string) {
	s.pushEnvelope(EnvelopeError, map[string]any{
		"code":    code,
		"message": message,
	})
}

// WritePump handles writing frames from the send queue to the WebSocket connection.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (s *Session) writePingMessage() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
