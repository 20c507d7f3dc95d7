package provision

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServerClaims identifies the caller as a server acting for an app.
type ServerClaims struct {
	Data struct {
		AppID string `json:"appId"`
		Type  string `json:"type"`
	} `json:"data"`
	jwt.RegisteredClaims
}

// ServerToken signs an HS256 server token for appID with the app secret.
func ServerToken(appID, secret string, now time.Time) (string, error) {
	var claims ServerClaims
	claims.Data.AppID = appID
	claims.Data.Type = "server"
	claims.IssuedAt = jwt.NewNumericDate(now)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign server token: %w", err)
	}
	return signed, nil
}
