package xmpp

import (
	"log/slog"
	"time"

	"github.com/user/roombot/internal/types"
)

// Router turns raw inbound frames into message events.
type Router struct {
	self   string
	logger *slog.Logger
	now    func() time.Time
}

// NewRouter returns a router that drops traffic from the occupant named
// self. A nil logger means slog.Default().
func NewRouter(self string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{self: self, logger: logger, now: time.Now}
}

// Route accepts only groupchat messages with a non-empty body from another
// occupant. Everything else reports false.
func (r *Router) Route(raw []byte) (types.MessageEvent, bool) {
	el, err := ParseElement(raw)
	if err != nil {
		r.logger.Debug("drop unparseable frame", "error", err)
		return types.MessageEvent{}, false
	}
	if !el.Is("message") || el.Attr("type") != "groupchat" {
		return types.MessageEvent{}, false
	}
	body := el.Child("body")
	if body == nil || body.Text == "" {
		return types.MessageEvent{}, false
	}
	sender := resourceOf(el.Attr("from"))
	if sender == "" || sender == r.self {
		return types.MessageEvent{}, false
	}
	return types.MessageEvent{
		SenderID:   sender,
		Body:       body.Text,
		ReceivedAt: r.now(),
	}, true
}
