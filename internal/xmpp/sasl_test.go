package xmpp

import (
	"encoding/base64"
	"testing"
)

func TestPlainResponse(t *testing.T) {
	got := plainResponse("bot", "secret")
	raw, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "\x00bot\x00secret" {
		t.Errorf("unexpected PLAIN payload %q", raw)
	}
}

func TestOffersMechanism(t *testing.T) {
	features, err := ParseElement([]byte(`<stream:features xmlns:stream="http://etherx.jabber.org/streams">` +
		`<mechanisms xmlns="urn:ietf:params:xml:ns:xmpp-sasl"><mechanism>SCRAM-SHA-1</mechanism><mechanism>PLAIN</mechanism></mechanisms>` +
		`</stream:features>`))
	if err != nil {
		t.Fatal(err)
	}
	if !features.Is("features") {
		t.Fatalf("expected features element, got %q", features.XMLName.Local)
	}
	if !offersMechanism(features, "PLAIN") {
		t.Error("expected PLAIN to be offered")
	}
	if offersMechanism(features, "EXTERNAL") {
		t.Error("did not expect EXTERNAL to be offered")
	}
}

func TestAuthFailure(t *testing.T) {
	el, err := ParseElement([]byte(`<failure xmlns="urn:ietf:params:xml:ns:xmpp-sasl"><not-authorized/><text>bad password</text></failure>`))
	if err != nil {
		t.Fatal(err)
	}
	authErr := authFailure(el)
	if authErr.Condition != "not-authorized" {
		t.Errorf("expected not-authorized, got %q", authErr.Condition)
	}
	if authErr.Text != "bad password" {
		t.Errorf("expected text, got %q", authErr.Text)
	}
}
