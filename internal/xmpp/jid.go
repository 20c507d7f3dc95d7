package xmpp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJID is returned by ParseJID for addresses without a domain.
var ErrInvalidJID = errors.New("invalid jid")

// JID is an XMPP address of the form local@domain/resource.
type JID struct {
	Local    string
	Domain   string
	Resource string
}

// ParseJID splits an address into its parts. The resource is everything
// after the first '/', so occupant nicknames may themselves contain '/'.
func ParseJID(s string) (JID, error) {
	bare, resource, _ := strings.Cut(strings.TrimSpace(s), "/")
	local, domain, found := strings.Cut(bare, "@")
	if !found {
		domain, local = local, ""
	}
	if domain == "" {
		return JID{}, fmt.Errorf("%w: %q", ErrInvalidJID, s)
	}
	return JID{Local: local, Domain: domain, Resource: resource}, nil
}

// Bare returns the address without its resource.
func (j JID) Bare() JID {
	return JID{Local: j.Local, Domain: j.Domain}
}

// WithResource returns a copy of j with the given resource.
func (j JID) WithResource(resource string) JID {
	j.Resource = resource
	return j
}

func (j JID) String() string {
	var b strings.Builder
	if j.Local != "" {
		b.WriteString(j.Local)
		b.WriteByte('@')
	}
	b.WriteString(j.Domain)
	if j.Resource != "" {
		b.WriteByte('/')
		b.WriteString(j.Resource)
	}
	return b.String()
}

// resourceOf returns the resource part of a raw address, or "" when there
// is none.
func resourceOf(addr string) string {
	_, resource, _ := strings.Cut(addr, "/")
	return resource
}
