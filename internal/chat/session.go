package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"

	"skillswap/internal/api"
)

// ErrSessionClosed is returned by Open on a session that was already torn
// down. Sessions are single-use: re-entering a chat means a new Session.
var ErrSessionClosed = errors.New("chat session closed")

// TokenProvider supplies the raw bearer token for the channel URL.
// *auth.Credentials satisfies it.
type TokenProvider interface {
	AccessToken() string
}

// SessionHandlers notify the consumer of session-level changes. Callbacks
// run on the channel's read goroutine (or the opener's goroutine for state
// changes during Open/Close) and must not block.
type SessionHandlers struct {
	OnMessage func(Message) // one appended record per call, in order
	OnError   func(string)  // user-facing error text, dismissable
	OnState   func(State)
}

// ReconnectPolicy configures automatic redial after an unexpected drop.
// Zero fields fall back to the exponential backoff defaults.
type ReconnectPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration // 0 means retry forever
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithHistoryLimit sets the size of the seed page loaded on Open.
func WithHistoryLimit(n int) SessionOption {
	return func(s *Session) { s.historyLimit = n }
}

// WithReconnect enables automatic redial with exponential backoff. Off by
// default: without it a dropped connection stays dropped until the consumer
// opens a fresh session.
func WithReconnect(p ReconnectPolicy) SessionOption {
	return func(s *Session) {
		s.reconnect = true
		s.reconnectPolicy = p
	}
}

// Session owns the ordered message list and the live channel for one chat.
//
// The hard invariant: at most one connection attempt is in flight or
// established at any time, no matter how often Open is re-invoked. Two
// separate guards back this up, dialing (attempt in flight) and channel
// (handle held), because an attempt exists before a handle does.
type Session struct {
	svc    *Service
	tokens TokenProvider
	chatID int

	handlers        SessionHandlers
	historyLimit    int
	reconnect       bool
	reconnectPolicy ReconnectPolicy

	mu       sync.Mutex
	dialing  bool     // connection attempt in flight
	channel  *Channel // live handle, nil when not held
	closed   bool     // explicit Close; terminal
	seeded   bool     // history page already merged
	messages []Message
	seen     map[int]bool
	errText  string
	state    State
}

// NewSession prepares a session for one chat. Nothing happens until Open.
func NewSession(svc *Service, tokens TokenProvider, chatID int, handlers SessionHandlers, opts ...SessionOption) *Session {
	s := &Session{
		svc:          svc,
		tokens:       tokens,
		chatID:       chatID,
		handlers:     handlers,
		historyLimit: 50,
		seen:         make(map[int]bool),
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open seeds the message list from the most recent history page, then
// establishes the live channel. Concurrent or repeated calls while an
// attempt is pending or a connection is held are no-ops.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.dialing || s.channel != nil {
		s.mu.Unlock()
		return nil
	}
	s.dialing = true
	s.state = StateConnecting
	s.mu.Unlock()
	s.notifyState(StateConnecting)

	if err := s.seedHistory(ctx); err != nil {
		s.failDial()
		return err
	}
	if err := s.dial(ctx); err != nil {
		s.failDial()
		return err
	}
	return nil
}

// seedHistory loads the newest page once. History arrives ascending from
// the service (it reverses the wire order); thereafter the list only grows
// by appending live events.
func (s *Session) seedHistory(ctx context.Context) error {
	s.mu.Lock()
	seeded := s.seeded
	s.mu.Unlock()
	if seeded {
		return nil
	}

	msgs, _, err := s.svc.History(ctx, s.chatID, s.historyLimit, 0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.seeded {
		for _, m := range msgs {
			s.appendLocked(m)
		}
		s.seeded = true
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) dial(ctx context.Context) error {
	url := s.svc.channelURL(s.chatID, s.tokens.AccessToken())
	ch, err := Dial(ctx, url, Handlers{
		OnEvent: s.handleEvent,
		OnError: s.handleTransportError,
		OnClose: s.handleChannelClose,
	})
	if err != nil {
		return &api.NetworkError{Err: err}
	}

	s.mu.Lock()
	if s.closed {
		// The view went away while the handshake was running.
		s.mu.Unlock()
		ch.Close()
		return ErrSessionClosed
	}
	s.channel = ch
	s.dialing = false
	s.errText = ""
	s.state = StateOpen
	s.mu.Unlock()
	s.notifyState(StateOpen)
	return nil
}

func (s *Session) failDial() {
	s.mu.Lock()
	s.dialing = false
	if !s.closed {
		s.state = StateError
	}
	s.mu.Unlock()
	s.notifyState(StateError)
}

// Send writes one message over the live channel. Fire-and-forget: no
// optimistic local append, the authoritative copy comes back as a
// MessageEvent. On failure the caller keeps the composed text.
func (s *Session) Send(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLen {
		return ErrMessageTooLong
	}

	s.mu.Lock()
	ch := s.channel
	state := s.state
	s.mu.Unlock()
	if ch == nil {
		return &ChannelNotReadyError{State: state}
	}
	return ch.Send(trimmed)
}

// Close tears the session down: releases the live connection (at most once)
// and clears both guards. Safe to call repeatedly, and a no-op when no
// connection was ever established.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.dialing = false
	ch := s.channel
	s.channel = nil
	s.state = StateClosed
	s.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	s.notifyState(StateClosed)
}

// Messages returns a snapshot of the ordered list.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the observable lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the currently surfaced error text, "" when none.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errText
}

// DismissErr clears the surfaced error text.
func (s *Session) DismissErr() {
	s.mu.Lock()
	s.errText = ""
	s.mu.Unlock()
}

// handleEvent is the inbound dispatch table: connection acks clear the
// error state, messages append exactly one record, server errors surface
// without touching the list or the connection.
func (s *Session) handleEvent(ev Event) {
	switch ev := ev.(type) {
	case ConnectionEvent:
		s.mu.Lock()
		s.errText = ""
		s.mu.Unlock()

	case MessageEvent:
		s.mu.Lock()
		added := s.appendLocked(ev.Message)
		s.mu.Unlock()
		if added && s.handlers.OnMessage != nil {
			s.handlers.OnMessage(ev.Message)
		}

	case ErrorEvent:
		s.surfaceError(ev.Text)
	}
}

func (s *Session) handleTransportError(err error) {
	s.surfaceError("chat connection error: " + err.Error())
}

func (s *Session) surfaceError(text string) {
	s.mu.Lock()
	s.errText = text
	s.mu.Unlock()
	if s.handlers.OnError != nil {
		s.handlers.OnError(text)
	}
}

// handleChannelClose runs when the socket dies, whatever the cause. For an
// explicit Close the guards are already down; for a server-side drop it
// releases the handle and optionally starts the redial loop.
func (s *Session) handleChannelClose() {
	s.mu.Lock()
	explicit := s.closed
	s.channel = nil
	s.dialing = false
	if !explicit {
		s.state = StateClosed
	}
	redial := s.reconnect && !explicit
	s.mu.Unlock()

	if !explicit {
		s.notifyState(StateClosed)
	}
	if redial {
		go s.redial()
	}
}

// redial re-establishes a dropped channel with exponential backoff. The
// message list is kept; duplicate echoes around the gap are dropped by id.
func (s *Session) redial() {
	b := backoff.NewExponentialBackOff()
	p := s.reconnectPolicy
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()

	for {
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		time.Sleep(wait)

		s.mu.Lock()
		if s.closed || s.dialing || s.channel != nil {
			s.mu.Unlock()
			return
		}
		s.dialing = true
		s.state = StateConnecting
		s.mu.Unlock()
		s.notifyState(StateConnecting)

		if err := s.dial(context.Background()); err == nil {
			return
		}
		s.mu.Lock()
		s.dialing = false
		s.mu.Unlock()
	}
}

// appendLocked appends preserving arrival order. Live events are trusted in
// server-emission order; there is no client-side resort. A record whose id
// was already merged (a second-session echo, or a replay around a redial)
// appends nothing.
func (s *Session) appendLocked(m Message) bool {
	if m.ID != 0 {
		if s.seen[m.ID] {
			return false
		}
		s.seen[m.ID] = true
	}
	s.messages = append(s.messages, m)
	return true
}

func (s *Session) notifyState(state State) {
	if s.handlers.OnState != nil {
		s.handlers.OnState(state)
	}
}
