// Package responder implements a conversational agent that answers every
// room message through a chat-completion backend.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/user/roombot/internal/types"
	"github.com/user/roombot/pkg/llm"
)

const (
	DefaultSystemPrompt = "You are a helpful AI assistant in a group chat. Keep responses concise and friendly."

	// Apology is sent once when a completion fails.
	Apology = "Sorry, I encountered an error processing your message."
)

// OutcomeKind classifies the result of handling one message.
type OutcomeKind int

const (
	Replied OutcomeKind = iota
	Suppressed
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Replied:
		return "replied"
	case Suppressed:
		return "suppressed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of Respond.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// TokenCounter estimates prompt size. *tokens.Counter satisfies it.
type TokenCounter interface {
	CountMessages(messages []llm.Message) int
}

// Config configures a Responder.
type Config struct {
	// Name is used in the greeting.
	Name         string
	SystemPrompt string
	Capacity     int
	// Counter measures every prompt. With MaxPromptTokens set it also
	// enforces the ceiling.
	Counter TokenCounter
	// MaxPromptTokens caps the prompt size. Zero means no ceiling.
	MaxPromptTokens int
	Logger          *slog.Logger
}

// Responder keeps one conversation window for the whole room.
type Responder struct {
	provider llm.Provider
	sender   types.Sender
	name     string
	counter  TokenCounter
	budget   int
	logger   *slog.Logger

	mu     sync.Mutex
	window *Window
}

// New creates a Responder.
func New(provider llm.Provider, sender types.Sender, cfg Config) *Responder {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Responder{
		provider: provider,
		sender:   sender,
		name:     cfg.Name,
		counter:  cfg.Counter,
		budget:   cfg.MaxPromptTokens,
		logger:   cfg.Logger,
		window:   NewWindow(cfg.SystemPrompt, cfg.Capacity),
	}
}

// Greeting is the message sent when the session comes online.
func Greeting(name string) string {
	return fmt.Sprintf("👋 Hello! I'm %s, an AI assistant powered by OpenAI. I'm here to help answer your questions and participate in discussions. Feel free to chat with me!", name)
}

// OnOnline sends the greeting.
func (r *Responder) OnOnline(ctx context.Context) error {
	return r.sender.SendGroupMessage(ctx, Greeting(r.name))
}

// HandleMessage answers one room message. It reports an error only when
// the completion failed.
func (r *Responder) HandleMessage(ctx context.Context, ev types.MessageEvent) error {
	out := r.Respond(ctx, ev)
	if out.Kind == Failed {
		return out.Err
	}
	return nil
}

// Respond appends the message to the window, requests a completion and
// sends the reply. A failed completion or a reply that cannot be sent
// sends Apology once and leaves no assistant turn behind.
func (r *Responder) Respond(ctx context.Context, ev types.MessageEvent) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.window.Append(llm.RoleUser, ev.Body)
	if n := r.window.Fit(r.counter, r.budget); n > 0 {
		r.logger.Debug("evicted turns over token budget", "evicted", n, "budget", r.budget)
	}
	prompt := r.window.Messages()
	if r.counter != nil {
		r.logger.Debug("completion request", "window", len(prompt), "prompt_tokens", r.counter.CountMessages(prompt))
	}

	resp, err := r.provider.Complete(ctx, prompt)
	if err != nil {
		r.logger.Error("completion failed", "sender", ev.SenderID, "error", err)
		return r.fail(ctx, fmt.Errorf("complete: %w", err))
	}

	content := resp.Content
	if strings.TrimSpace(content) == "" {
		r.logger.Debug("empty completion", "sender", ev.SenderID)
		return Outcome{Kind: Suppressed}
	}

	if err := r.sender.SendGroupMessage(ctx, content); err != nil {
		r.logger.Error("send reply", "sender", ev.SenderID, "error", err)
		return r.fail(ctx, fmt.Errorf("send reply: %w", err))
	}
	r.window.Append(llm.RoleAssistant, content)
	return Outcome{Kind: Replied, Text: content}
}

// fail sends Apology once. A failed apology is logged and does not change
// the outcome.
func (r *Responder) fail(ctx context.Context, err error) Outcome {
	if sendErr := r.sender.SendGroupMessage(ctx, Apology); sendErr != nil {
		r.logger.Error("send apology", "error", sendErr)
	}
	return Outcome{Kind: Failed, Text: Apology, Err: err}
}

// History returns a copy of the current window.
func (r *Responder) History() []llm.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.window.Messages()
}
