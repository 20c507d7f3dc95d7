// Package xmpptest provides an in-process XMPP-over-WebSocket server for
// exercising client sessions.
package xmpptest

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	openFrame  = `<open xmlns="urn:ietf:params:xml:ns:xmpp-framing" from="%s" id="%s" version="1.0"/>`
	closeFrame = `<close xmlns="urn:ietf:params:xml:ns:xmpp-framing"/>`

	featuresStart = `<stream:features xmlns:stream="http://etherx.jabber.org/streams">`
	featuresEnd   = `</stream:features>`
)

var errRejected = errors.New("client credentials rejected")

// Server scripts the server side of stream negotiation and then records
// every frame the client sends.
type Server struct {
	// URL is the ws:// address clients dial.
	URL string

	domain     string
	username   string
	password   string
	mechanisms []string
	session    bool

	srv    *httptest.Server
	frames chan string
	online chan struct{}
	once   sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

// Option configures a Server.
type Option func(*Server)

// WithMechanisms replaces the advertised SASL mechanisms.
func WithMechanisms(mechs ...string) Option {
	return func(s *Server) { s.mechanisms = mechs }
}

// WithoutSession stops advertising legacy session establishment.
func WithoutSession() Option {
	return func(s *Server) { s.session = false }
}

// New starts a server on example.com accepting username/password over
// SASL PLAIN.
func New(username, password string, opts ...Option) *Server {
	s := &Server{
		domain:     "example.com",
		username:   username,
		password:   password,
		mechanisms: []string{"PLAIN"},
		session:    true,
		frames:     make(chan string, 64),
		online:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	s.URL = "ws" + strings.TrimPrefix(s.srv.URL, "http")
	return s
}

// Close drops the client connection and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.CloseNow()
	}
	s.srv.Close()
}

// Err returns the first protocol error the server observed.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Next returns the next frame the client sent after negotiation.
func (s *Server) Next(timeout time.Duration) (string, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-time.After(timeout):
		return "", errors.New("timed out waiting for client frame")
	}
}

// Push sends a raw frame to the negotiated client.
func (s *Server) Push(ctx context.Context, frame string) error {
	select {
	case <-s.online:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	return conn.Write(ctx, websocket.MessageText, []byte(frame))
}

// GroupMessage pushes a groupchat message from the occupant nick.
func (s *Server) GroupMessage(ctx context.Context, room, nick, body string) error {
	var b strings.Builder
	b.WriteString(`<message xmlns="jabber:client" type="groupchat" from="`)
	xml.EscapeText(&b, []byte(room+"/"+nick))
	b.WriteString(`"><body>`)
	xml.EscapeText(&b, []byte(body))
	b.WriteString(`</body></message>`)
	return s.Push(ctx, b.String())
}

// CloseStream sends the framing close element.
func (s *Server) CloseStream(ctx context.Context) error {
	return s.Push(ctx, closeFrame)
}

func (s *Server) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"xmpp"},
	})
	if err != nil {
		s.fail(err)
		return
	}
	defer conn.CloseNow()
	if conn.Subprotocol() != "xmpp" {
		s.fail(fmt.Errorf("negotiated subprotocol %q", conn.Subprotocol()))
		conn.Close(websocket.StatusPolicyViolation, "xmpp subprotocol required")
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	ctx := r.Context()
	if err := s.negotiate(ctx, conn); err != nil {
		s.fail(err)
		return
	}
	s.once.Do(func() { close(s.online) })

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return
		}
		select {
		case s.frames <- string(frame):
		default:
			s.fail(errors.New("frame buffer full"))
		}
	}
}

func (s *Server) negotiate(ctx context.Context, conn *websocket.Conn) error {
	if _, err := expect(ctx, conn, "open"); err != nil {
		return err
	}
	if err := s.writeStreamStart(ctx, conn, "s1", s.saslFeatures()); err != nil {
		return err
	}

	auth, err := expect(ctx, conn, "auth")
	if err != nil {
		return err
	}
	if !s.accepts(auth) {
		if err := write(ctx, conn, `<failure xmlns="urn:ietf:params:xml:ns:xmpp-sasl"><not-authorized/><text>bad credentials</text></failure>`); err != nil {
			return err
		}
		// wait for the client to hang up
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return errRejected
			}
		}
	}
	if err := write(ctx, conn, `<success xmlns="urn:ietf:params:xml:ns:xmpp-sasl"/>`); err != nil {
		return err
	}

	if _, err := expect(ctx, conn, "open"); err != nil {
		return err
	}
	bindFeatures := `<bind xmlns="urn:ietf:params:xml:ns:xmpp-bind"/>`
	if s.session {
		bindFeatures += `<session xmlns="urn:ietf:params:xml:ns:xmpp-session"><optional/></session>`
	}
	if err := s.writeStreamStart(ctx, conn, "s2", bindFeatures); err != nil {
		return err
	}

	bind, err := expect(ctx, conn, "iq")
	if err != nil {
		return err
	}
	resource := bind.innerText("resource")
	if resource == "" {
		resource = "generated"
	}
	jid := fmt.Sprintf("%s@%s/%s", s.username, s.domain, resource)
	result := fmt.Sprintf(`<iq xmlns="jabber:client" type="result" id="%s"><bind xmlns="urn:ietf:params:xml:ns:xmpp-bind"><jid>%s</jid></bind></iq>`, bind.attr("id"), jid)
	if err := write(ctx, conn, result); err != nil {
		return err
	}

	if s.session {
		sess, err := expect(ctx, conn, "iq")
		if err != nil {
			return err
		}
		if err := write(ctx, conn, fmt.Sprintf(`<iq xmlns="jabber:client" type="result" id="%s"/>`, sess.attr("id"))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) saslFeatures() string {
	var b strings.Builder
	b.WriteString(`<mechanisms xmlns="urn:ietf:params:xml:ns:xmpp-sasl">`)
	for _, m := range s.mechanisms {
		fmt.Fprintf(&b, "<mechanism>%s</mechanism>", m)
	}
	b.WriteString(`</mechanisms>`)
	return b.String()
}

func (s *Server) writeStreamStart(ctx context.Context, conn *websocket.Conn, id, features string) error {
	if err := write(ctx, conn, fmt.Sprintf(openFrame, s.domain, id)); err != nil {
		return err
	}
	return write(ctx, conn, featuresStart+features+featuresEnd)
}

func (s *Server) accepts(auth *frame) bool {
	if auth.attr("mechanism") != "PLAIN" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(auth.Text))
	if err != nil {
		return false
	}
	parts := strings.Split(string(raw), "\x00")
	return len(parts) == 3 && parts[1] == s.username && parts[2] == s.password
}

type frame struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []frame    `xml:",any"`
}

func (f *frame) attr(name string) string {
	for _, a := range f.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// innerText finds the first descendant with the given local name.
func (f *frame) innerText(local string) string {
	for i := range f.Children {
		c := &f.Children[i]
		if c.XMLName.Local == local {
			return c.Text
		}
		if t := c.innerText(local); t != "" {
			return t
		}
	}
	return ""
}

func expect(ctx context.Context, conn *websocket.Conn, local string) (*frame, error) {
	_, raw, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", local, err)
	}
	var f frame
	if err := xml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", local, err)
	}
	if f.XMLName.Local != local {
		return nil, fmt.Errorf("expected <%s>, got <%s>", local, f.XMLName.Local)
	}
	return &f, nil
}

func write(ctx context.Context, conn *websocket.Conn, payload string) error {
	return conn.Write(ctx, websocket.MessageText, []byte(payload))
}
