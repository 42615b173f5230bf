package callapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// RoleResponse is the role lookup payload. Role is empty when unknown.
type RoleResponse struct {
	Role string `json:"role,omitempty"`
}

// LookupRole asks the service for the role bound to email. When token is set the
// request carries it as a bearer credential.
func (c *Client) LookupRole(ctx context.Context, email, token string) (string, error) {
	hc := c.httpClient
	if token = strings.TrimSpace(token); token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
		hc.Timeout = c.timeout
	}
	var resp RoleResponse
	path := "/get-user-role?" + url.Values{"email": {email}}.Encode()
	if err := c.doJSON(ctx, hc, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Role, nil
}
