package tokens

import (
	"testing"

	"github.com/user/roombot/pkg/llm"
)

func newCounter(t *testing.T, model string) *Counter {
	t.Helper()
	c, err := New(model)
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return c
}

func TestCount(t *testing.T) {
	c := newCounter(t, "gpt-3.5-turbo")
	if n := c.Count(""); n != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", n)
	}
	if n := c.Count("hello world"); n != 2 {
		t.Errorf("expected 2 tokens, got %d", n)
	}
}

func TestCountUnknownModelFallsBack(t *testing.T) {
	c := newCounter(t, "some-local-model")
	if n := c.Count("hello world"); n != 2 {
		t.Errorf("expected cl100k_base count of 2, got %d", n)
	}
}

func TestCountMessages(t *testing.T) {
	c := newCounter(t, "gpt-3.5-turbo")
	short := c.CountMessages([]llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	long := c.CountMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "You are helpful."},
		{Role: llm.RoleUser, Content: "hi"},
	})
	if short <= tokensPerReply {
		t.Errorf("expected framing plus content, got %d", short)
	}
	if long <= short {
		t.Errorf("expected more tokens for more messages: %d <= %d", long, short)
	}
}
