package provision

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestServerToken(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signed, err := ServerToken("app-1", "app-secret", now)
	if err != nil {
		t.Fatal(err)
	}

	var claims ServerClaims
	_, err = jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
		return []byte("app-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Data.AppID != "app-1" || claims.Data.Type != "server" {
		t.Errorf("unexpected claims %+v", claims.Data)
	}
	if !claims.IssuedAt.Time.Equal(now) {
		t.Errorf("expected iat %v, got %v", now, claims.IssuedAt.Time)
	}
}

func TestServerTokenWrongSecret(t *testing.T) {
	signed, err := ServerToken("app-1", "app-secret", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	_, err = jwt.Parse(signed, func(*jwt.Token) (any, error) {
		return []byte("other"), nil
	})
	if err == nil {
		t.Error("expected signature verification to fail")
	}
}
