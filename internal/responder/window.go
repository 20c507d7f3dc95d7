package responder

import "github.com/user/roombot/pkg/llm"

// DefaultCapacity is the number of non-system turns a window keeps.
const DefaultCapacity = 10

// Window is a bounded conversation history. Entry 0 is the system
// instruction and is never evicted; at most capacity other turns follow it.
type Window struct {
	turns    []llm.Message
	capacity int
}

// NewWindow creates a window pinned to the system instruction.
func NewWindow(system string, capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		turns:    []llm.Message{{Role: llm.RoleSystem, Content: system}},
		capacity: capacity,
	}
}

// Append adds a turn and evicts the oldest non-system turns beyond
// capacity.
func (w *Window) Append(role, content string) {
	w.turns = append(w.turns, llm.Message{Role: role, Content: content})
	w.truncate()
}

func (w *Window) truncate() {
	if len(w.turns) <= w.capacity+1 {
		return
	}
	kept := make([]llm.Message, 0, w.capacity+1)
	kept = append(kept, w.turns[0])
	kept = append(kept, w.turns[len(w.turns)-w.capacity:]...)
	w.turns = kept
}

// Fit evicts the oldest non-system turns until counter reports at most
// budget tokens for the whole window. The newest turn is always kept. It
// returns the number of turns evicted. A nil counter or a non-positive
// budget disables the ceiling.
func (w *Window) Fit(counter TokenCounter, budget int) int {
	if counter == nil || budget <= 0 {
		return 0
	}
	evicted := 0
	for len(w.turns) > 2 && counter.CountMessages(w.turns) > budget {
		w.turns = append(w.turns[:1], w.turns[2:]...)
		evicted++
	}
	return evicted
}

// Messages returns a copy of the window in prompt order.
func (w *Window) Messages() []llm.Message {
	out := make([]llm.Message, len(w.turns))
	copy(out, w.turns)
	return out
}

// Len is the number of entries including the system instruction.
func (w *Window) Len() int { return len(w.turns) }

// Capacity is the number of non-system turns kept.
func (w *Window) Capacity() int { return w.capacity }
