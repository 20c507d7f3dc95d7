//go:build integration

package test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/roombot/internal/game"
	"github.com/user/roombot/internal/gateway"
	"github.com/user/roombot/internal/responder"
	"github.com/user/roombot/internal/types"
	"github.com/user/roombot/internal/xmpp"
	"github.com/user/roombot/internal/xmpp/xmpptest"
	"github.com/user/roombot/pkg/llm"
	"github.com/user/roombot/pkg/llm/openai"
)

const room = "lobby@conference.example.com"

var quiet = slog.New(slog.DiscardHandler)

// startAgent connects a session to srv and serves agent until the test ends.
func startAgent(t *testing.T, srv *xmpptest.Server, build func(types.Sender) types.Agent) {
	t.Helper()
	id := xmpp.Identity{
		JID:         xmpp.JID{Local: "bot", Domain: "example.com", Resource: "roombot"},
		Password:    "secret",
		Room:        xmpp.JID{Local: "lobby", Domain: "conference.example.com"},
		DisplayName: "Helper",
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := xmpp.Dial(ctx, srv.URL, id, xmpp.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	gw := gateway.New(sess, build(sess), gateway.WithLogger(quiet))
	done := make(chan error, 1)
	go func() { done <- gw.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
		sess.Close()
	})

	if el := nextStanza(t, srv); !el.Is("presence") {
		t.Fatalf("expected join presence, got %s", el.XMLName.Local)
	}
}

func nextStanza(t *testing.T, srv *xmpptest.Server) *xmpp.Element {
	t.Helper()
	raw, err := srv.Next(5 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	el, err := xmpp.ParseElement([]byte(raw))
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return el
}

func nextBody(t *testing.T, srv *xmpptest.Server) string {
	t.Helper()
	el := nextStanza(t, srv)
	if !el.Is("message") || el.Attr("type") != "groupchat" || el.Attr("to") != room {
		t.Fatalf("expected groupchat message to %s, got %s to=%q", room, el.XMLName.Local, el.Attr("to"))
	}
	body := el.Child("body")
	if body == nil {
		t.Fatal("message without body")
	}
	return body.Text
}

func say(t *testing.T, srv *xmpptest.Server, nick, body string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.GroupMessage(ctx, room, nick, body); err != nil {
		t.Fatal(err)
	}
}

var (
	commitmentRe = regexp.MustCompile(`commitment: ([0-9a-f]{64})`)
	botMoveRe    = regexp.MustCompile(`My move: (COOPERATE|DEFECT)`)
	nonceRe      = regexp.MustCompile(`Nonce: ([0-9a-f]{64})`)
)

func TestGameEndToEnd(t *testing.T) {
	srv := xmpptest.New("bot", "secret")
	defer srv.Close()

	startAgent(t, srv, func(s types.Sender) types.Agent {
		return game.New(s, game.WithLogger(quiet))
	})

	if got := nextBody(t, srv); got != game.Intro {
		t.Fatalf("expected intro, got %q", got)
	}

	// The agent's own echo must not start a game.
	say(t, srv, "bot", "play")
	say(t, srv, "alice", "play")
	started := nextBody(t, srv)
	m := commitmentRe.FindStringSubmatch(started)
	if m == nil {
		t.Fatalf("expected commitment in %q", started)
	}
	commitment := m[1]

	say(t, srv, "alice", "cooperate")
	reveal := nextBody(t, srv)
	mv := botMoveRe.FindStringSubmatch(reveal)
	nm := nonceRe.FindStringSubmatch(reveal)
	if mv == nil || nm == nil {
		t.Fatalf("expected move and nonce in %q", reveal)
	}
	botMove, _ := game.ParseMove(mv[1])
	if !game.Verify(botMove, nm[1], commitment) {
		t.Errorf("revealed move %s with nonce %s does not match %s", botMove, nm[1], commitment)
	}
	if !strings.Contains(reveal, "Verification successful") {
		t.Errorf("expected verification notice in %q", reveal)
	}

	say(t, srv, "alice", "stats")
	if stats := nextBody(t, srv); !strings.Contains(stats, "Total Rounds: 1") {
		t.Errorf("expected one round in %q", stats)
	}
}

func TestResponderEndToEnd(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{"role": "assistant", "content": "echo: " + last.Content},
			}},
		})
	}))
	defer api.Close()

	srv := xmpptest.New("bot", "secret")
	defer srv.Close()

	startAgent(t, srv, func(s types.Sender) types.Agent {
		provider := openai.New(&llm.Config{BaseURL: api.URL, APIKey: "k", Model: "gpt-test", MaxTokens: 50})
		return responder.New(provider, s, responder.Config{Name: "Helper", Logger: quiet})
	})

	if got := nextBody(t, srv); got != responder.Greeting("Helper") {
		t.Fatalf("expected greeting, got %q", got)
	}

	say(t, srv, "bot", "talking to myself")
	say(t, srv, "alice", "hello there")
	if got := nextBody(t, srv); got != "echo: hello there" {
		t.Errorf("unexpected reply %q", got)
	}
	say(t, srv, "bob", "second")
	if got := nextBody(t, srv); got != "echo: second" {
		t.Errorf("unexpected reply %q", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 completions, got %d", n)
	}
}
