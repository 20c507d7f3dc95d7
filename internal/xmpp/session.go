package xmpp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Subprotocol is the WebSocket subprotocol registered for XMPP (RFC 7395).
const Subprotocol = "xmpp"

const (
	defaultEventBuffer = 64
	readLimit          = 1 << 20
	closeTimeout       = 2 * time.Second
)

var (
	// ErrNotConnected is returned by Send when the session is not Online.
	ErrNotConnected = errors.New("session is not online")

	// ErrStreamClosed is reported when the server closes the stream.
	ErrStreamClosed = errors.New("stream closed by server")
)

// SendError wraps a wire failure while writing a stanza.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return "send stanza: " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateOnline:
		return "online"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind classifies session events.
type EventKind int

const (
	EventOnline EventKind = iota
	EventStanza
	EventError
)

// Event is one item of the session's event stream.
type Event struct {
	Kind EventKind
	Raw  []byte
	Err  error
}

// Conn is the subset of *websocket.Conn the session uses.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.events = make(chan Event, n)
		}
	}
}

// Session is one authenticated XMPP-over-WebSocket stream bound to a single
// room identity.
type Session struct {
	conn   Conn
	id     Identity
	logger *slog.Logger
	events chan Event

	mu    sync.Mutex
	state State
	bound JID
}

// Dial opens the WebSocket to endpoint and returns a session ready for
// Connect.
func Dial(ctx context.Context, endpoint string, id Identity, opts ...Option) (*Session, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	conn.SetReadLimit(readLimit)
	return NewSession(conn, id, opts...), nil
}

// NewSession wraps an established connection.
func NewSession(conn Conn, id Identity, opts ...Option) *Session {
	s := &Session{
		conn:   conn,
		id:     id,
		logger: slog.Default(),
		events: make(chan Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("jid", id.JID.Bare().String())
	return s
}

// Identity returns the identity the session was built with.
func (s *Session) Identity() Identity { return s.id }

// LocalName is the name the agent's own occupant carries in the room.
func (s *Session) LocalName() string { return s.id.JID.Local }

// Events is the stream of session events. It is closed when Run returns.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BoundJID is the full address assigned by the server at bind time.
func (s *Session) BoundJID() JID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.logger.Info("session state", "from", prev.String(), "to", next.String())
	}
}

// Connect runs stream negotiation: open, SASL PLAIN, stream restart,
// resource bind and session establishment. It returns once the session is
// Online and the room join presence has been sent.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		s.setState(StateDisconnected)
		return err
	}

	s.setState(StateOnline)
	if err := s.Send(ctx, JoinPresence(s.id)); err != nil {
		s.logger.Error("join room", "room_jid", s.id.Room.String(), "error", err)
	} else {
		s.logger.Info("joined room", "room_jid", s.id.Room.String())
	}
	s.emit(ctx, Event{Kind: EventOnline})
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	s.setState(StateConnecting)

	features, err := s.openStream(ctx)
	if err != nil {
		return err
	}
	if !offersMechanism(features, mechanismPlain) {
		return ErrMechanismUnsupported
	}

	s.setState(StateAuthenticating)
	if err := s.authenticate(ctx); err != nil {
		return err
	}

	features, err = s.openStream(ctx)
	if err != nil {
		return err
	}
	if err := s.bind(ctx); err != nil {
		return err
	}
	if features.Child("session") != nil {
		if err := s.establishSession(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) openStream(ctx context.Context) (*Element, error) {
	if err := s.write(ctx, Open{To: s.id.JID.Domain, Version: "1.0"}); err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	for {
		el, err := s.next(ctx)
		if err != nil {
			return nil, fmt.Errorf("open stream: %w", err)
		}
		switch {
		case el.Is("open"):
			continue
		case el.Is("features"):
			return el, nil
		case el.Is("close"):
			return nil, fmt.Errorf("open stream: %w", ErrStreamClosed)
		default:
			return nil, fmt.Errorf("open stream: unexpected <%s>", el.XMLName.Local)
		}
	}
}

func (s *Session) authenticate(ctx context.Context) error {
	auth := Auth{
		Mechanism: mechanismPlain,
		Value:     plainResponse(s.id.JID.Local, s.id.Password),
	}
	if err := s.write(ctx, auth); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	el, err := s.next(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	switch {
	case el.Is("success"):
		return nil
	case el.Is("failure"):
		return authFailure(el)
	default:
		return fmt.Errorf("authenticate: unexpected <%s>", el.XMLName.Local)
	}
}

func (s *Session) bind(ctx context.Context) error {
	result, err := s.query(ctx, IQ{Type: "set", Bind: &BindPayload{Resource: s.id.JID.Resource}})
	if err != nil {
		return fmt.Errorf("bind resource: %w", err)
	}
	bound := s.id.JID
	if b := result.Child("bind"); b != nil {
		if j := b.Child("jid"); j != nil {
			if parsed, err := ParseJID(j.Text); err == nil {
				bound = parsed
			}
		}
	}
	s.mu.Lock()
	s.bound = bound
	s.mu.Unlock()
	s.logger.Debug("resource bound", "bound_jid", bound.String())
	return nil
}

func (s *Session) establishSession(ctx context.Context) error {
	if _, err := s.query(ctx, IQ{Type: "set", Session: &SessionMarker{}}); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}
	return nil
}

// query sends an iq and waits for the matching result.
func (s *Session) query(ctx context.Context, iq IQ) (*Element, error) {
	iq.ID = uuid.NewString()
	if err := s.write(ctx, iq); err != nil {
		return nil, err
	}
	for {
		el, err := s.next(ctx)
		if err != nil {
			return nil, err
		}
		if !el.Is("iq") || el.Attr("id") != iq.ID {
			s.logger.Debug("skipping frame during negotiation", "element", el.XMLName.Local)
			continue
		}
		if typ := el.Attr("type"); typ != "result" {
			return nil, fmt.Errorf("iq %s returned type %q", iq.ID, typ)
		}
		return el, nil
	}
}

func (s *Session) next(ctx context.Context) (*Element, error) {
	_, frame, err := s.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return ParseElement(frame)
}

func (s *Session) write(ctx context.Context, v any) error {
	payload, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode stanza: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// Send writes one stanza. It fails with ErrNotConnected unless the session
// is Online. There is no queueing and no retry.
func (s *Session) Send(ctx context.Context, stanza any) error {
	if s.State() != StateOnline {
		return ErrNotConnected
	}
	return s.write(ctx, stanza)
}

// SendGroupMessage sends body to the session's room.
func (s *Session) SendGroupMessage(ctx context.Context, body string) error {
	return s.Send(ctx, GroupMessage(s.id, body))
}

// Run reads frames until the stream ends, emitting one EventStanza per
// frame. A read failure or server close emits a single EventError and moves
// the session to Disconnected. The event channel is closed on return.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)
	for {
		_, frame, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				return ctx.Err()
			}
			return s.fail(ctx, fmt.Errorf("read frame: %w", err))
		}
		if isStreamClose(frame) {
			return s.fail(ctx, ErrStreamClosed)
		}
		if !s.emit(ctx, Event{Kind: EventStanza, Raw: frame}) {
			s.setState(StateDisconnected)
			return ctx.Err()
		}
	}
}

func (s *Session) fail(ctx context.Context, err error) error {
	s.setState(StateDisconnected)
	s.logger.Error("session ended", "error", err)
	s.emit(ctx, Event{Kind: EventError, Err: err})
	return err
}

func (s *Session) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func isStreamClose(frame []byte) bool {
	el, err := ParseElement(frame)
	return err == nil && el.Is("close") && el.XMLName.Space == nsFraming
}

// Close ends the stream and closes the socket.
func (s *Session) Close() error {
	if s.State() == StateOnline {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := s.write(ctx, Close{}); err != nil {
			s.logger.Debug("write stream close", "error", err)
		}
		cancel()
	}
	s.setState(StateDisconnected)
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
