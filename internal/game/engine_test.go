package game

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/user/roombot/internal/types"
)

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) SendGroupMessage(_ context.Context, body string) error {
	s.sent = append(s.sent, body)
	return s.err
}

func newEngine(opts ...Option) (*Engine, *fakeSender) {
	s := &fakeSender{}
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(s, opts...), s
}

// fixedRand yields the move byte followed by a zero nonce, repeatedly.
func fixedRand(bot Move) *bytes.Reader {
	first := byte(0)
	if bot == Defect {
		first = 1
	}
	var buf []byte
	for i := 0; i < 8; i++ {
		buf = append(buf, first)
		buf = append(buf, make([]byte, nonceSize)...)
	}
	return bytes.NewReader(buf)
}

func handle(t *testing.T, e *Engine, player, text string) {
	t.Helper()
	if err := e.HandleMessage(context.Background(), types.MessageEvent{SenderID: player, Body: text}); err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
}

func TestPlayThenReveal(t *testing.T) {
	e, s := newEngine()

	handle(t, e, "alice", "play")
	if len(s.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(s.sent))
	}
	sess, ok := e.Session("alice")
	if !ok || sess.State != Committed {
		t.Fatalf("expected committed session, got %+v", sess)
	}
	if !hex64.MatchString(sess.Commitment) {
		t.Fatalf("expected 64 hex commitment, got %q", sess.Commitment)
	}
	start := s.sent[0]
	if !strings.Contains(start, sess.Commitment) {
		t.Error("expected commitment in game start message")
	}
	if strings.Contains(start, sess.Nonce) || strings.Contains(start, "My move") {
		t.Error("game start message must not reveal the nonce or move")
	}

	handle(t, e, "alice", "  cooperate ")
	reveal := s.sent[1]
	for _, want := range []string{
		"Your move: COOPERATE",
		"My move: " + string(sess.BotMove),
		"Nonce: " + sess.Nonce,
		"✅ Verification successful!",
	} {
		if !strings.Contains(reveal, want) {
			t.Errorf("expected reveal to contain %q, got:\n%s", want, reveal)
		}
	}
	if !Verify(sess.BotMove, sess.Nonce, sess.Commitment) {
		t.Error("expected revealed move and nonce to open the commitment")
	}

	after, _ := e.Session("alice")
	if after.State != Finished || len(after.Rounds) != 1 {
		t.Errorf("expected finished session with one round, got %+v", after)
	}
}

func TestRevealPoints(t *testing.T) {
	e, s := newEngine(WithRand(fixedRand(Defect)))

	handle(t, e, "bob", "PLAY")
	handle(t, e, "bob", "COOPERATE")

	reveal := s.sent[1]
	if !strings.Contains(reveal, "You: 0\nMe: 5") {
		t.Errorf("expected defect/cooperate payoff, got:\n%s", reveal)
	}
	sess, _ := e.Session("bob")
	if r := sess.Rounds[0]; r.PlayerPoints != 0 || r.BotPoints != 5 || r.BotMove != Defect {
		t.Errorf("unexpected round %+v", r)
	}
}

func TestNoActiveGame(t *testing.T) {
	e, s := newEngine()
	for _, text := range []string{"cooperate", "stats", "hello"} {
		handle(t, e, "carol", text)
	}
	if len(s.sent) != 3 {
		t.Fatalf("expected three prompts, got %v", s.sent)
	}
	for _, m := range s.sent {
		if m != NoActiveGame {
			t.Errorf("expected play prompt, got %q", m)
		}
	}
}

func TestMoveOutsideCommittedIsNoop(t *testing.T) {
	e, s := newEngine()
	handle(t, e, "dave", "play")
	handle(t, e, "dave", "defect")
	before, _ := e.Session("dave")

	handle(t, e, "dave", "cooperate")

	after, _ := e.Session("dave")
	if after.State != Finished || len(after.Rounds) != len(before.Rounds) {
		t.Errorf("expected no state change, before %+v after %+v", before, after)
	}
	if last := s.sent[len(s.sent)-1]; last != NoActiveGame {
		t.Errorf("expected play prompt, got %q", last)
	}
}

func TestStatsWithZeroRounds(t *testing.T) {
	e, s := newEngine()
	handle(t, e, "erin", "play")
	handle(t, e, "erin", "stats")

	if len(s.sent) != 1 {
		t.Errorf("expected no stats reply, got %v", s.sent)
	}
	if sess, _ := e.Session("erin"); sess.State != Committed {
		t.Errorf("expected session to stay committed, got %s", sess.State)
	}
}

func TestOtherTextIgnored(t *testing.T) {
	e, s := newEngine()
	handle(t, e, "frank", "play")
	handle(t, e, "frank", "what is this?")
	if len(s.sent) != 1 {
		t.Errorf("expected chatter to be ignored, got %v", s.sent)
	}
}

func TestStatsAcrossRounds(t *testing.T) {
	e, s := newEngine(WithRand(fixedRand(Cooperate)))

	handle(t, e, "gina", "play")
	handle(t, e, "gina", "cooperate")
	handle(t, e, "gina", "play")
	handle(t, e, "gina", "defect")
	handle(t, e, "gina", "play")
	handle(t, e, "gina", "defect")
	handle(t, e, "gina", "stats")

	want := "Game Statistics:\nTotal Rounds: 3\nYour Total Points: 13\nMy Total Points: 3\n\n" +
		"Your Cooperation Rate: 33.3%\nMy Cooperation Rate: 100.0%"
	if got := s.sent[len(s.sent)-1]; got != want {
		t.Errorf("unexpected stats:\n%s\nwant:\n%s", got, want)
	}
}

func TestSessionsArePerPlayer(t *testing.T) {
	e, _ := newEngine()
	handle(t, e, "alice", "play")
	handle(t, e, "bob", "cooperate")

	if _, ok := e.Session("bob"); ok {
		t.Error("expected no session for bob")
	}
	if sess, _ := e.Session("alice"); sess.State != Committed {
		t.Errorf("expected alice untouched, got %s", sess.State)
	}
}

func TestTamperedCommitmentReported(t *testing.T) {
	e, s := newEngine()
	handle(t, e, "hank", "play")

	e.mu.Lock()
	e.sessions["hank"].Commitment = flip(e.sessions["hank"].Commitment)
	e.mu.Unlock()

	handle(t, e, "hank", "cooperate")
	if !strings.Contains(s.sent[1], "❌ Something went wrong with verification!") {
		t.Errorf("expected verification failure notice, got:\n%s", s.sent[1])
	}
	if sess, _ := e.Session("hank"); len(sess.Rounds) != 1 {
		t.Errorf("expected round still recorded, got %d", len(sess.Rounds))
	}
}

func TestRandomnessFailure(t *testing.T) {
	e, s := newEngine(WithRand(bytes.NewReader(nil)))
	err := e.HandleMessage(context.Background(), types.MessageEvent{SenderID: "ivy", Body: "play"})
	if err == nil {
		t.Fatal("expected error when randomness is unavailable")
	}
	if len(s.sent) != 0 {
		t.Errorf("expected nothing sent, got %v", s.sent)
	}
}

func TestSendFailureSwallowed(t *testing.T) {
	e, s := newEngine()
	s.err = errors.New("session is not online")
	if err := e.HandleMessage(context.Background(), types.MessageEvent{SenderID: "jack", Body: "play"}); err != nil {
		t.Errorf("expected send failure to be logged only, got %v", err)
	}
}

func TestOnOnlineIntro(t *testing.T) {
	e, s := newEngine()
	if err := e.OnOnline(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 || !strings.Contains(s.sent[0], "Both Cooperate: 3 points each") {
		t.Errorf("unexpected intro %v", s.sent)
	}
}
