package access

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed token")

// Identity is what a bearer token says about its holder.
type Identity struct {
	Name   string
	Email  string
	Claims map[string]any
}

// emailClaims lists the claim names checked for an email, in order.
var emailClaims = []string{"email", "Email", "user_email"}

// DecodeToken reads the payload of a JWT without verifying its signature. The
// token is issued by the external login service; this process never holds its key.
func DecodeToken(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMalformedToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, errors.Join(ErrMalformedToken, err)
	}

	id := Identity{Claims: map[string]any(claims)}
	id.Name = stringClaim(claims, "name")
	for _, key := range emailClaims {
		if email := stringClaim(claims, key); email != "" {
			id.Email = email
			break
		}
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
