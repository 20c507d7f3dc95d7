// Package tokens estimates prompt sizes for chat-completion requests.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/roombot/pkg/llm"
)

const fallbackEncoding = "cl100k_base"

// Per-message framing overhead of the chat format, from OpenAI's token
// counting guidance.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// Counter counts tokens with the encoding of one model.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New creates a counter for model, falling back to cl100k_base for models
// tiktoken does not know.
func New(model string) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Counter{enc: enc}, nil
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages estimates the prompt tokens of a full request.
func (c *Counter) CountMessages(messages []llm.Message) int {
	total := tokensPerReply
	for _, m := range messages {
		total += tokensPerMessage + c.Count(m.Role) + c.Count(m.Content)
	}
	return total
}
