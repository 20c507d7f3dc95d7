package xmpp

import (
	"log/slog"
	"testing"
)

func TestRouterRoute(t *testing.T) {
	r := NewRouter("bot", slog.New(slog.DiscardHandler))

	tests := []struct {
		name       string
		frame      string
		wantOK     bool
		wantSender string
		wantBody   string
	}{
		{
			name:       "groupchat from occupant",
			frame:      `<message xmlns="jabber:client" type="groupchat" from="lobby@conference.example.com/alice"><body>hi there</body></message>`,
			wantOK:     true,
			wantSender: "alice",
			wantBody:   "hi there",
		},
		{
			name:       "nick containing slash",
			frame:      `<message type="groupchat" from="lobby@conference.example.com/a/b"><body>x</body></message>`,
			wantOK:     true,
			wantSender: "a/b",
			wantBody:   "x",
		},
		{
			name:  "own groupchat message",
			frame: `<message type="groupchat" from="lobby@conference.example.com/bot"><body>echo</body></message>`,
		},
		{
			name:  "own message with metadata",
			frame: `<message type="groupchat" from="lobby@conference.example.com/bot" id="1"><body>echo</body><data xmlns="jabber:client" fullName="Bot"/></message>`,
		},
		{
			name:  "own presence",
			frame: `<presence from="lobby@conference.example.com/bot"><x xmlns="http://jabber.org/protocol/muc#user"/></presence>`,
		},
		{
			name:  "own chat message",
			frame: `<message type="chat" from="lobby@conference.example.com/bot"><body>echo</body></message>`,
		},
		{
			name:  "direct chat",
			frame: `<message type="chat" from="alice@example.com/phone"><body>hi</body></message>`,
		},
		{
			name:  "empty body",
			frame: `<message type="groupchat" from="lobby@conference.example.com/alice"><body></body></message>`,
		},
		{
			name:       "whitespace body is not empty",
			frame:      `<message type="groupchat" from="lobby@conference.example.com/alice"><body>   </body></message>`,
			wantOK:     true,
			wantSender: "alice",
			wantBody:   "   ",
		},
		{
			name:  "no body",
			frame: `<message type="groupchat" from="lobby@conference.example.com/alice"><subject>topic</subject></message>`,
		},
		{
			name:  "room itself",
			frame: `<message type="groupchat" from="lobby@conference.example.com"><body>room notice</body></message>`,
		},
		{
			name:  "presence",
			frame: `<presence from="lobby@conference.example.com/alice"/>`,
		},
		{
			name:  "iq",
			frame: `<iq type="get" id="p1" from="example.com"><ping xmlns="urn:xmpp:ping"/></iq>`,
		},
		{
			name:  "error message",
			frame: `<message type="error" from="lobby@conference.example.com/alice"><body>x</body></message>`,
		},
		{
			name:  "garbage",
			frame: `<message type="groupchat"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := r.Route([]byte(tt.frame))
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.wantOK, ok, ev)
			}
			if !ok {
				return
			}
			if ev.SenderID != tt.wantSender {
				t.Errorf("expected sender %q, got %q", tt.wantSender, ev.SenderID)
			}
			if ev.Body != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, ev.Body)
			}
			if ev.ReceivedAt.IsZero() {
				t.Error("expected receive time")
			}
		})
	}
}
