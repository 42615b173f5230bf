package calls

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"callinsights-backend/internal/access"
	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/shared/server/middleware"
)

const testSession = "6f1d4f0e-8c43-4a8e-9d62-1f0f6c7f6b3a"

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Session("dash_session", false), middleware.Credentials("access_token"))
	h := NewHandler(svc, "https://login.example/login", "/auth/callback/", 0)
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func tokenFor(t *testing.T, email string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "Pat", "email": email}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func do(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "dash_session", Value: testSession})
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type viewResponse struct {
	Phase    dashboard.Phase `json:"phase"`
	Progress float64         `json:"progress"`
	JobID    string          `json:"jobId"`
	Files    []string        `json:"files"`
	Error    string          `json:"error"`
	Sections []struct {
		ID      dashboard.SectionID `json:"id"`
		Kind    string              `json:"kind"`
		Payload map[string]any      `json:"payload"`
	} `json:"sections"`
}

func decodeView(t *testing.T, resp *httptest.ResponseRecorder) viewResponse {
	t.Helper()
	var v viewResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func sectionIDs(v viewResponse) []string {
	ids := make([]string, 0, len(v.Sections))
	for _, s := range v.Sections {
		ids = append(ids, string(s.ID))
	}
	return ids
}

func startReady(t *testing.T, r http.Handler, svc *Service, remote *fakeRemote) {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/api/v1/dashboard/jobs", gin.H{"files": []string{"a.wav"}}, "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	remote.push(readyResult(), nil)
	waitIdle(t, svc)
}

func TestDashboardStartsIdle(t *testing.T) {
	svc := newTestService(t, newFakeRemote(), nil)
	r := newTestRouter(t, svc)

	v := decodeView(t, do(t, r, http.MethodGet, "/api/v1/dashboard", nil, ""))
	if v.Phase != dashboard.PhaseIdle || v.Progress != 0 || len(v.Sections) != 0 || v.JobID != "" {
		t.Fatalf("unexpected idle view: %+v", v)
	}
}

func TestStartJobEndpoint(t *testing.T) {
	remote := newFakeRemote()
	svc := newTestService(t, remote, nil)
	r := newTestRouter(t, svc)

	resp := do(t, r, http.MethodPost, "/api/v1/dashboard/jobs", gin.H{"files": []string{}}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/jobs", gin.H{"files": []string{"a.wav"}}, "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	v := decodeView(t, resp)
	if v.Phase != dashboard.PhaseProcessing || v.JobID == "" || v.Progress != dashboard.ProgressStart {
		t.Fatalf("unexpected processing view: %+v", v)
	}
	if len(v.Files) != 1 || v.Files[0] != "a.wav" {
		t.Fatalf("unexpected files: %v", v.Files)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/jobs", gin.H{"files": []string{"b.wav"}}, "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 while processing, got %d", resp.Code)
	}

	remote.push(readyResult(), nil)
	waitIdle(t, svc)

	v = decodeView(t, do(t, r, http.MethodGet, "/api/v1/dashboard", nil, ""))
	if v.Phase != dashboard.PhaseReady {
		t.Fatalf("expected ready, got %s", v.Phase)
	}
	want := "call-info,call-summary,speaker-insights,sentiment-score-chart"
	if got := strings.Join(sectionIDs(v), ","); got != want {
		t.Fatalf("expected sections %s, got %s", want, got)
	}
	if v.Sections[0].Kind != "call-info" {
		t.Fatalf("expected kind to mirror id, got %q", v.Sections[0].Kind)
	}
}

func TestAgentRatingGatedByRole(t *testing.T) {
	remote := newFakeRemote()
	roles := fakeRoles{"lead@example.com": "Manager", "rep@example.com": "agent"}
	svc := newTestService(t, remote, roles)
	r := newTestRouter(t, svc)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "no credential", token: "", want: false},
		{name: "agent role", token: tokenFor(t, "rep@example.com"), want: false},
		{name: "manager role", token: tokenFor(t, "lead@example.com"), want: true},
		{name: "malformed token", token: "not-a-jwt", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Each viewer gets its own session so memoized roles do not leak.
			svc.Sessions.Close()
			startReady(t, r, svc, remote)
			v := decodeView(t, do(t, r, http.MethodGet, "/api/v1/dashboard", nil, tc.token))
			var insights map[string]any
			for _, s := range v.Sections {
				if s.ID == dashboard.SectionSpeakerInsights {
					insights = s.Payload
				}
			}
			if insights == nil {
				t.Fatalf("expected speaker insights section")
			}
			_, has := insights["agentRating"]
			if has != tc.want {
				t.Fatalf("expected agentRating present=%v, payload %v", tc.want, insights)
			}
		})
	}
}

func TestHideAndReorderEndpoints(t *testing.T) {
	remote := newFakeRemote()
	svc := newTestService(t, remote, nil)
	r := newTestRouter(t, svc)
	startReady(t, r, svc, remote)

	if resp := do(t, r, http.MethodPost, "/api/v1/dashboard/sections/nope/hide", nil, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown section, got %d", resp.Code)
	}

	resp := do(t, r, http.MethodPost, "/api/v1/dashboard/sections/call-summary/hide", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := strings.Join(sectionIDs(decodeView(t, resp)), ","); got != "call-info,speaker-insights,sentiment-score-chart" {
		t.Fatalf("unexpected sections after hide: %s", got)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/sections/reorder", gin.H{"id": "sentiment-score-chart", "beforeId": "call-info"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := strings.Join(sectionIDs(decodeView(t, resp)), ","); got != "sentiment-score-chart,call-info,speaker-insights" {
		t.Fatalf("unexpected sections after reorder: %s", got)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/sections/reorder", gin.H{"id": "call-info", "beforeId": nil}, "")
	if got := strings.Join(sectionIDs(decodeView(t, resp)), ","); got != "sentiment-score-chart,speaker-insights,call-info" {
		t.Fatalf("unexpected sections after move to end: %s", got)
	}

	if resp := do(t, r, http.MethodPost, "/api/v1/dashboard/sections/reorder", gin.H{"id": "ghost"}, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown reorder id, got %d", resp.Code)
	}
}

func TestDragEndpoints(t *testing.T) {
	remote := newFakeRemote()
	svc := newTestService(t, remote, nil)
	r := newTestRouter(t, svc)
	startReady(t, r, svc, remote)

	rects := []dashboard.Rect{
		{ID: dashboard.SectionCallInfo, X: 0, Y: 0, Width: 100, Height: 100},
		{ID: dashboard.SectionCallSummary, X: 0, Y: 100, Width: 100, Height: 100},
		{ID: dashboard.SectionSpeakerInsights, X: 0, Y: 200, Width: 100, Height: 100},
		{ID: dashboard.SectionSentimentScoreChart, X: 0, Y: 300, Width: 100, Height: 100},
	}

	resp := do(t, r, http.MethodPost, "/api/v1/dashboard/drag/down", gin.H{"sectionId": "sentiment-score-chart", "x": 50, "y": 350, "rects": rects}, "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"armed":true`) {
		t.Fatalf("expected armed drag, got %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/drag/move", gin.H{"x": 52, "y": 352}, "")
	if !strings.Contains(resp.Body.String(), `"state":"pending"`) || !strings.Contains(resp.Body.String(), `"target":null`) {
		t.Fatalf("expected pending below activation distance, got %s", resp.Body.String())
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/drag/move", gin.H{"x": 50, "y": 60}, "")
	if !strings.Contains(resp.Body.String(), `"target":"call-info"`) {
		t.Fatalf("expected call-info target, got %s", resp.Body.String())
	}

	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/drag/up", nil, "")
	if !strings.Contains(resp.Body.String(), `"moved":true`) {
		t.Fatalf("expected move, got %s", resp.Body.String())
	}
	v := decodeView(t, do(t, r, http.MethodGet, "/api/v1/dashboard", nil, ""))
	if got := strings.Join(sectionIDs(v), ","); got != "sentiment-score-chart,call-info,call-summary,speaker-insights" {
		t.Fatalf("unexpected order after drag: %s", got)
	}

	do(t, r, http.MethodPost, "/api/v1/dashboard/drag/down", gin.H{"sectionId": "call-info", "x": 50, "y": 50, "rects": rects}, "")
	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/drag/cancel", nil, "")
	if !strings.Contains(resp.Body.String(), `"state":"idle"`) {
		t.Fatalf("expected idle after cancel, got %s", resp.Body.String())
	}
	resp = do(t, r, http.MethodPost, "/api/v1/dashboard/drag/up", nil, "")
	if !strings.Contains(resp.Body.String(), `"moved":false`) {
		t.Fatalf("expected no move after cancel, got %s", resp.Body.String())
	}
}

func TestResetEndpoint(t *testing.T) {
	remote := newFakeRemote()
	svc := newTestService(t, remote, nil)
	r := newTestRouter(t, svc)
	startReady(t, r, svc, remote)

	v := decodeView(t, do(t, r, http.MethodPost, "/api/v1/dashboard/reset", nil, ""))
	if v.Phase != dashboard.PhaseIdle || len(v.Sections) != 0 || v.JobID != "" {
		t.Fatalf("unexpected view after reset: %+v", v)
	}
}

func TestProgressStreamEndsOutsideProcessing(t *testing.T) {
	svc := newTestService(t, newFakeRemote(), nil)
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/progress/stream", nil)
	req.AddCookie(&http.Cookie{Name: "dash_session", Value: testSession})
	resp := newStreamRecorder()
	r.ServeHTTP(resp, req)

	body := resp.Body.String()
	if strings.Count(body, "event:progress") != 1 {
		t.Fatalf("expected exactly one progress event, got %q", body)
	}
	if !strings.Contains(body, `"phase":"idle"`) {
		t.Fatalf("expected idle phase in event, got %q", body)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
}

func TestProgressStreamFollowsJob(t *testing.T) {
	remote := newFakeRemote()
	svc := newTestService(t, remote, nil)
	r := newTestRouter(t, svc)
	h := NewHandler(svc, "", "", 5*time.Millisecond)
	gin.SetMode(gin.TestMode)
	streamRouter := gin.New()
	streamRouter.Use(middleware.Session("dash_session", false))
	h.RegisterRoutes(streamRouter.Group("/api/v1"))

	if resp := do(t, r, http.MethodPost, "/api/v1/dashboard/jobs", gin.H{"files": []string{"a.wav"}}, ""); resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	go remote.push(readyResult(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/progress/stream", nil)
	req.AddCookie(&http.Cookie{Name: "dash_session", Value: testSession})
	resp := newStreamRecorder()
	streamRouter.ServeHTTP(resp, req)

	body := resp.Body.String()
	if !strings.Contains(body, `"phase":"processing"`) {
		t.Fatalf("expected a processing event, got %q", body)
	}
	if !strings.Contains(body, `"phase":"ready"`) {
		t.Fatalf("expected stream to end on ready, got %q", body)
	}
}

func TestMeEndpoint(t *testing.T) {
	svc := newTestService(t, newFakeRemote(), fakeRoles{"lead@example.com": "manager"})
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "http://dash.example/api/v1/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var anon map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&anon); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if anon["role"] != "" || !strings.HasPrefix(anon["loginUrl"].(string), "https://login.example/login?redirect_uri=") {
		t.Fatalf("unexpected anonymous /me: %v", anon)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/me", nil, tokenFor(t, "lead@example.com"))
	var me map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me["name"] != "Pat" || me["email"] != "lead@example.com" || me["role"] != "manager" {
		t.Fatalf("unexpected /me: %v", me)
	}
	if _, ok := me["loginUrl"]; ok {
		t.Fatalf("loginUrl should be omitted with a credential")
	}
}

func TestListJobsEndpoint(t *testing.T) {
	remote := newFakeRemote()
	svc := newTestService(t, remote, nil)
	r := newTestRouter(t, svc)
	startReady(t, r, svc, remote)

	if resp := do(t, r, http.MethodGet, "/api/v1/jobs?limit=0", nil, ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}
	resp := do(t, r, http.MethodGet, "/api/v1/jobs", nil, "")
	var body struct {
		Items []struct {
			Status string   `json:"status"`
			Files  []string `json:"files"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Status != "ready" || body.Items[0].Files[0] != "a.wav" {
		t.Fatalf("unexpected jobs: %+v", body.Items)
	}
}

var _ access.RoleLookup = fakeRoles{}
