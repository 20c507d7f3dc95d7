// Package game implements a Prisoner's Dilemma agent that commits to its
// move before the player chooses and reveals it afterwards.
package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/user/roombot/internal/types"
)

const (
	cmdPlay  = "PLAY"
	cmdStats = "STATS"
)

// Fixed replies.
const (
	Intro = "👋 I'm the Prisoner's Dilemma Bot! Let's explore game theory together.\n\n" +
		"Type 'play' to start a new game. In each round, you'll choose to either COOPERATE or DEFECT.\n\n" +
		"Payoff Matrix:\n" +
		"Both Cooperate: 3 points each\n" +
		"Both Defect: 1 point each\n" +
		"One Defects: Defector gets 5, Cooperator gets 0"

	NoActiveGame = "No active game. Type 'play' to start one!"

	verificationOK     = "✅ Verification successful! You can check my commitment by hashing my move and nonce."
	verificationFailed = "❌ Something went wrong with verification!"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRand replaces the randomness source for moves and nonces.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// Engine keeps one game session per player.
type Engine struct {
	sender types.Sender
	logger *slog.Logger
	rand   io.Reader

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates an Engine that replies through sender.
func New(sender types.Sender, opts ...Option) *Engine {
	e := &Engine{
		sender:   sender,
		logger:   slog.Default(),
		rand:     defaultRand,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnOnline sends the introduction with the payoff matrix.
func (e *Engine) OnOnline(ctx context.Context) error {
	return e.sender.SendGroupMessage(ctx, Intro)
}

// HandleMessage applies one room message and sends the reply, if any.
func (e *Engine) HandleMessage(ctx context.Context, ev types.MessageEvent) error {
	reply, ok, err := e.Reply(ev.SenderID, ev.Body)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := e.sender.SendGroupMessage(ctx, reply); err != nil {
		e.logger.Error("send reply", "sender", ev.SenderID, "error", err)
	}
	return nil
}

// Reply advances player's session for text and returns the message to
// send. ok is false when the text warrants no reply.
func (e *Engine) Reply(player, text string) (reply string, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	command := strings.ToUpper(strings.TrimSpace(text))
	if command == cmdPlay {
		return e.play(player)
	}

	sess, exists := e.sessions[player]
	if !exists {
		return NoActiveGame, true, nil
	}

	if move, isMove := ParseMove(command); isMove {
		if sess.State != Committed {
			return NoActiveGame, true, nil
		}
		return e.reveal(sess, move), true, nil
	}

	if command == cmdStats && len(sess.Rounds) > 0 {
		return formatStats(sess.Stats()), true, nil
	}
	return "", false, nil
}

// Session returns a copy of player's session.
func (e *Engine) Session(player string) (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[player]
	if !ok {
		return Session{}, false
	}
	cp := *sess
	cp.Rounds = append([]Round(nil), sess.Rounds...)
	return cp, true
}

func (e *Engine) play(player string) (string, bool, error) {
	move, err := randomMove(e.rand)
	if err != nil {
		return "", false, fmt.Errorf("start game: %w", err)
	}
	nonce, err := newNonce(e.rand)
	if err != nil {
		return "", false, fmt.Errorf("start game: %w", err)
	}

	next := &Session{
		PlayerID:   player,
		BotMove:    move,
		Nonce:      nonce,
		Commitment: Commitment(move, nonce),
		State:      Committed,
	}
	if prev, ok := e.sessions[player]; ok {
		next.Rounds = prev.Rounds
	}
	e.sessions[player] = next
	e.logger.Debug("game committed", "sender", player, "round", len(next.Rounds)+1)

	return fmt.Sprintf("Game started! I've made my choice and here's my commitment: %s\n\n"+
		"Type 'COOPERATE' or 'DEFECT' to make your move.", next.Commitment), true, nil
}

func (e *Engine) reveal(sess *Session, playerMove Move) string {
	points := Payoff(sess.BotMove, playerMove)
	sess.Rounds = append(sess.Rounds, Round{
		PlayerMove:   playerMove,
		BotMove:      sess.BotMove,
		PlayerPoints: points.Player,
		BotPoints:    points.Bot,
	})

	verification := verificationOK
	if !Verify(sess.BotMove, sess.Nonce, sess.Commitment) {
		e.logger.Error("commitment mismatch", "sender", sess.PlayerID)
		verification = verificationFailed
	}
	sess.State = Finished

	return fmt.Sprintf("Your move: %s\nMy move: %s\nNonce: %s\n\n%s\n\n"+
		"Points this round:\nYou: %d\nMe: %d\n\n"+
		"Type 'play' for another round or 'stats' to see your game history!",
		playerMove, sess.BotMove, sess.Nonce, verification, points.Player, points.Bot)
}

func formatStats(st Stats) string {
	return fmt.Sprintf("Game Statistics:\nTotal Rounds: %d\nYour Total Points: %d\nMy Total Points: %d\n\n"+
		"Your Cooperation Rate: %.1f%%\nMy Cooperation Rate: %.1f%%",
		st.Rounds, st.PlayerPoints, st.BotPoints, st.PlayerCooperation, st.BotCooperation)
}
