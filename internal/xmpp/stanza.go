package xmpp

import (
	"encoding/xml"
	"fmt"
)

const (
	nsFraming = "urn:ietf:params:xml:ns:xmpp-framing"
	nsSASL    = "urn:ietf:params:xml:ns:xmpp-sasl"
	nsBind    = "urn:ietf:params:xml:ns:xmpp-bind"
	nsSession = "urn:ietf:params:xml:ns:xmpp-session"
	nsClient  = "jabber:client"
	nsMUC     = "http://jabber.org/protocol/muc"
)

// Element is a generic decoded stanza. Inbound frames are decoded into
// Element and classified by local name, so servers that differ in prefix
// handling for stream-level elements still parse.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Element  `xml:",any"`
}

// ParseElement decodes one frame.
func ParseElement(frame []byte) (*Element, error) {
	var el Element
	if err := xml.Unmarshal(frame, &el); err != nil {
		return nil, fmt.Errorf("decode stanza: %w", err)
	}
	return &el, nil
}

// Is reports whether the element has the given local name.
func (e *Element) Is(local string) bool {
	return e != nil && e.XMLName.Local == local
}

// Attr returns the value of an unqualified attribute.
func (e *Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// Child returns the first direct child with the given local name.
func (e *Element) Child(local string) *Element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == local {
			return &e.Children[i]
		}
	}
	return nil
}

// Open is the RFC 7395 stream open frame.
type Open struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-framing open"`
	To      string   `xml:"to,attr,omitempty"`
	Version string   `xml:"version,attr,omitempty"`
}

// Close is the RFC 7395 stream close frame.
type Close struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-framing close"`
}

// Auth starts a SASL exchange.
type Auth struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-sasl auth"`
	Mechanism string   `xml:"mechanism,attr"`
	Value     string   `xml:",chardata"`
}

// IQ is an info/query stanza restricted to the payloads used during
// session establishment.
type IQ struct {
	XMLName xml.Name       `xml:"jabber:client iq"`
	Type    string         `xml:"type,attr"`
	ID      string         `xml:"id,attr"`
	Bind    *BindPayload   `xml:"urn:ietf:params:xml:ns:xmpp-bind bind,omitempty"`
	Session *SessionMarker `xml:"urn:ietf:params:xml:ns:xmpp-session session,omitempty"`
}

// BindPayload requests a resource binding.
type BindPayload struct {
	Resource string `xml:"resource,omitempty"`
}

// SessionMarker is the empty legacy session establishment element.
type SessionMarker struct{}

// Metadata is the display-metadata child the chat backend expects on
// presence and message stanzas.
type Metadata struct {
	XMLName         xml.Name `xml:"jabber:client data"`
	FullName        string   `xml:"fullName,attr"`
	SenderFirstName string   `xml:"senderFirstName,attr"`
	SenderLastName  string   `xml:"senderLastName,attr"`
	ShowInChannel   string   `xml:"showInChannel,attr"`
}

// MUCJoin declares multi-user chat support in a join presence.
type MUCJoin struct {
	XMLName xml.Name `xml:"http://jabber.org/protocol/muc x"`
}

// Presence is an outbound presence stanza.
type Presence struct {
	XMLName xml.Name  `xml:"jabber:client presence"`
	To      string    `xml:"to,attr,omitempty"`
	MUC     *MUCJoin  `xml:",omitempty"`
	Data    *Metadata `xml:",omitempty"`
}

// Message is an outbound message stanza.
type Message struct {
	XMLName xml.Name  `xml:"jabber:client message"`
	To      string    `xml:"to,attr,omitempty"`
	Type    string    `xml:"type,attr,omitempty"`
	ID      string    `xml:"id,attr,omitempty"`
	Body    string    `xml:"body,omitempty"`
	Data    *Metadata `xml:",omitempty"`
}
