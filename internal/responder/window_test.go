package responder

import (
	"fmt"
	"testing"

	"github.com/user/roombot/pkg/llm"
)

func TestWindowKeepsSystemAndLatestTurns(t *testing.T) {
	w := NewWindow("sys", 3)
	for i := 1; i <= 7; i++ {
		w.Append(llm.RoleUser, fmt.Sprintf("u%d", i))
		if w.Len() > w.Capacity()+1 {
			t.Fatalf("window grew to %d entries", w.Len())
		}
		if got := w.Messages()[0]; got.Role != llm.RoleSystem || got.Content != "sys" {
			t.Fatalf("system turn evicted: %+v", got)
		}
	}

	msgs := w.Messages()
	want := []string{"sys", "u5", "u6", "u7"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(msgs))
	}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], m.Content)
		}
	}
}

func TestWindowDefaultCapacity(t *testing.T) {
	w := NewWindow("sys", 0)
	if w.Capacity() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, w.Capacity())
	}
}

func TestWindowMessagesIsCopy(t *testing.T) {
	w := NewWindow("sys", 2)
	w.Append(llm.RoleUser, "hi")
	msgs := w.Messages()
	msgs[1].Content = "changed"
	if w.Messages()[1].Content != "hi" {
		t.Error("expected Messages to return a copy")
	}
}

type perTurnCounter struct{ perTurn int }

func (c perTurnCounter) CountMessages(messages []llm.Message) int {
	return len(messages) * c.perTurn
}

func TestWindowFitTokenBudget(t *testing.T) {
	w := NewWindow("sys", 10)
	for i := 1; i <= 5; i++ {
		w.Append(llm.RoleUser, fmt.Sprintf("u%d", i))
	}

	if n := w.Fit(perTurnCounter{perTurn: 10}, 30); n != 3 {
		t.Errorf("expected 3 turns evicted, got %d", n)
	}
	msgs := w.Messages()
	if len(msgs) != 3 || msgs[0].Content != "sys" || msgs[1].Content != "u4" || msgs[2].Content != "u5" {
		t.Errorf("unexpected window %+v", msgs)
	}
}

func TestWindowFitKeepsNewestTurn(t *testing.T) {
	w := NewWindow("sys", 10)
	w.Append(llm.RoleUser, "u1")
	w.Append(llm.RoleUser, "u2")

	w.Fit(perTurnCounter{perTurn: 100}, 1)
	msgs := w.Messages()
	if len(msgs) != 2 || msgs[1].Content != "u2" {
		t.Errorf("expected system and newest turn, got %+v", msgs)
	}
}

func TestWindowFitDisabled(t *testing.T) {
	w := NewWindow("sys", 10)
	w.Append(llm.RoleUser, "u1")
	if n := w.Fit(nil, 10); n != 0 {
		t.Errorf("expected no eviction without counter, got %d", n)
	}
	if n := w.Fit(perTurnCounter{perTurn: 100}, 0); n != 0 {
		t.Errorf("expected no eviction without budget, got %d", n)
	}
}
