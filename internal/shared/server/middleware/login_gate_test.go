package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
)

func newGatedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoginGate(LoginGateConfig{
		LoginURL:     "https://login.example/login",
		CallbackPath: "/auth/callback/",
		CookieName:   "access_token",
		Skip:         []string{"/api/", "/metrics"},
	}))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/", ok)
	r.GET("/auth/callback/", ok)
	r.GET("/api/v1/health", ok)
	r.GET("/metrics", ok)
	return r
}

func TestLoginGateRedirectsWithoutCookie(t *testing.T) {
	r := newGatedRouter()
	req := httptest.NewRequest(http.MethodGet, "http://dash.example/", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Host != "login.example" || loc.Path != "/login" {
		t.Fatalf("unexpected login target: %s", loc)
	}
	if got := loc.Query().Get("redirect_uri"); got != "http://dash.example/auth/callback/" {
		t.Fatalf("unexpected redirect_uri: %q", got)
	}
}

func TestLoginGatePassesThrough(t *testing.T) {
	r := newGatedRouter()
	tests := []struct {
		name   string
		path   string
		cookie string
	}{
		{name: "with cookie", path: "/", cookie: "tok"},
		{name: "callback", path: "/auth/callback/"},
		{name: "api", path: "/api/v1/health"},
		{name: "metrics", path: "/metrics"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tc.cookie})
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.Code)
			}
		})
	}
}

func TestLoginURLAppendsToExistingQuery(t *testing.T) {
	got := LoginURL("https://login.example/login?app=dash", "https://dash.example/", "/auth/callback/")
	want := "https://login.example/login?app=dash&redirect_uri=" + url.QueryEscape("https://dash.example/auth/callback/")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
