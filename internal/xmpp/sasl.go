package xmpp

import (
	"encoding/base64"
	"errors"
	"fmt"
)

const mechanismPlain = "PLAIN"

// ErrMechanismUnsupported is returned when the server does not offer SASL
// PLAIN.
var ErrMechanismUnsupported = errors.New("server does not offer SASL PLAIN")

// AuthError is a SASL <failure/> returned by the server.
type AuthError struct {
	Condition string
	Text      string
}

func (e *AuthError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Condition, e.Text)
	}
	return fmt.Sprintf("authentication failed: %s", e.Condition)
}

// plainResponse builds the RFC 4616 initial response with an empty
// authorization identity.
func plainResponse(username, password string) string {
	raw := "\x00" + username + "\x00" + password
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// offersMechanism reports whether a <features/> element lists mech.
func offersMechanism(features *Element, mech string) bool {
	mechs := features.Child("mechanisms")
	if mechs == nil {
		return false
	}
	for _, m := range mechs.Children {
		if m.Is("mechanism") && m.Text == mech {
			return true
		}
	}
	return false
}

// authFailure converts a <failure/> element into an AuthError.
func authFailure(failure *Element) *AuthError {
	e := &AuthError{Condition: "unknown"}
	for _, c := range failure.Children {
		if c.Is("text") {
			e.Text = c.Text
			continue
		}
		e.Condition = c.XMLName.Local
	}
	return e
}
