package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store/memory"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGenerator) Generate(context.Context, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return "One **pothole** is pending on Main St .", nil
}

type testServer struct {
	t   *testing.T
	app *fiber.App
	gen *countingGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memory.New()
	gw, err := identity.NewLocal(st, "0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	gen := &countingGenerator{}
	app := New(Options{
		Config:    &config.Config{StoreDriver: config.DriverMemory, CORSOrigins: "*"},
		Store:     st,
		Identity:  gw,
		Generator: gen,
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
	})
	return &testServer{t: t, app: app, gen: gen}
}

// do sends a JSON request and decodes the JSON response into out when out is non-nil.
func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

type userBody struct {
	ID   string `json:"id"`
	UID  string `json:"uid"`
	Role string `json:"role"`
}

type issueBody struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	ReportedByID string `json:"reportedById"`
	ReportedBy   *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"reportedBy"`
	Flags struct {
		IsCritical  bool   `json:"isCritical"`
		IsDuplicate bool   `json:"isDuplicate"`
		Notes       string `json:"notes"`
	} `json:"flags"`
}

type commentBody struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Text string `json:"comment"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type message struct {
	Message string `json:"message"`
}

// signUp creates a profile and returns it with a fresh ID token.
func (s *testServer) signUp(name, role string) (userBody, string) {
	s.t.Helper()
	email := strings.ToLower(name) + "@example.com"
	var created struct {
		Message string   `json:"message"`
		User    userBody `json:"user"`
	}
	status := s.do("POST", "/api/users", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	}, &created)
	require.Equal(s.t, http.StatusCreated, status)

	var login struct {
		Message string `json:"message"`
		ID      string `json:"id"`
		UID     string `json:"uid"`
		IDToken string `json:"idToken"`
	}
	status = s.do("POST", "/api/users/login", "", map[string]string{"email": email, "password": "secret123"}, &login)
	require.Equal(s.t, http.StatusOK, status)
	require.Equal(s.t, created.User.ID, login.ID)
	require.NotEmpty(s.t, login.IDToken)
	return created.User, login.IDToken
}

func TestIssueLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.signUp("Root", "admin")
	ann, annToken := s.signUp("Ann", "")
	_, bobToken := s.signUp("Bob", "")
	assert.Equal(t, "admin", admin.Role)
	assert.Equal(t, "user", ann.Role)

	var created envelope[issueBody]
	status := s.do("POST", "/api/issues", annToken, map[string]any{
		"title":       "Pothole",
		"description": "Deep pothole near the school",
		"location":    "Main St",
		"imageUrl":    "https://img.example.com/p.jpg",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, created.Success)
	issue := created.Data
	assert.Equal(t, "Pending", issue.Status)
	assert.Equal(t, ann.ID, issue.ReportedByID)
	require.NotNil(t, issue.ReportedBy)
	assert.Equal(t, "ann@example.com", issue.ReportedBy.Email)

	var pending envelope[[]issueBody]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues/status/Pending", bobToken, nil, &pending))
	require.Len(t, pending.Data, 1)
	assert.Equal(t, issue.ID, pending.Data[0].ID)

	var bad envelope[any]
	require.Equal(t, http.StatusBadRequest, s.do("GET", "/api/issues/status/Closed", bobToken, nil, &bad))
	assert.False(t, bad.Success)
	assert.Equal(t, "Invalid status value", bad.Message)

	var updated envelope[issueBody]
	require.Equal(t, http.StatusOK, s.do("PUT", "/api/issues/"+issue.ID, adminToken, map[string]any{
		"status": "Resolved",
		"flags":  map[string]any{"isCritical": true},
	}, &updated))
	assert.Equal(t, "Resolved", updated.Data.Status)
	assert.True(t, updated.Data.Flags.IsCritical)
	assert.Equal(t, "Pothole", updated.Data.Title)

	var flagged envelope[[]issueBody]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues/flag/isCritical", adminToken, nil, &flagged))
	assert.Len(t, flagged.Data, 1)

	var denied message
	require.Equal(t, http.StatusForbidden, s.do("GET", "/api/issues/flag/isCritical", annToken, nil, &denied))
	assert.Equal(t, "Access Denied", denied.Message)

	require.Equal(t, http.StatusForbidden, s.do("DELETE", "/api/issues/"+issue.ID, bobToken, nil, &bad))
	assert.Equal(t, "Unauthorized", bad.Message)

	var mine envelope[[]issueBody]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues/user?userId="+ann.ID, annToken, nil, &mine))
	assert.Len(t, mine.Data, 1)

	var deleted envelope[any]
	require.Equal(t, http.StatusOK, s.do("DELETE", "/api/issues/"+issue.ID, annToken, nil, &deleted))
	assert.Equal(t, "Issue deleted successfully", deleted.Message)

	var all envelope[[]issueBody]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues", annToken, nil, &all))
	assert.NotNil(t, all.Data, "empty listings are arrays")
	assert.Empty(t, all.Data)
}

func TestAdminReportsAndResolves(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.signUp("Root", "admin")
	_, bobToken := s.signUp("Bob", "")

	var created envelope[issueBody]
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/issues", adminToken, map[string]any{
		"title": "Flooded underpass", "description": "Water knee deep", "location": "Rail Rd",
		"imageUrl": "https://img.example.com/f.jpg", "userId": admin.ID,
	}, &created))

	var pending envelope[[]issueBody]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues/status/Pending", adminToken, nil, &pending))
	require.Len(t, pending.Data, 1)
	assert.Equal(t, created.Data.ID, pending.Data[0].ID)

	var resolved envelope[issueBody]
	require.Equal(t, http.StatusOK, s.do("PUT", "/api/issues/"+created.Data.ID, adminToken, map[string]string{"status": "Resolved"}, &resolved))
	assert.Equal(t, "Resolved", resolved.Data.Status)

	var denied envelope[any]
	require.Equal(t, http.StatusForbidden, s.do("DELETE", "/api/issues/"+created.Data.ID, bobToken, nil, &denied))
	assert.False(t, denied.Success)
}

func TestEncodedPathParams(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signUp("Ann", "")

	for _, loc := range []string{"Main Street", "Ulica Łąkowa 3, Kraków"} {
		require.Equal(t, http.StatusCreated, s.do("POST", "/api/issues", token, map[string]any{
			"title": "Broken light", "description": "Out since Monday", "location": loc,
			"imageUrl": "https://img.example.com/l.jpg",
		}, nil))
	}

	var byLocation envelope[[]issueBody]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues/location/Main%20Street", token, nil, &byLocation))
	assert.Len(t, byLocation.Data, 1)

	require.Equal(t, http.StatusOK, s.do("GET", "/api/issues/location/"+url.PathEscape("Ulica Łąkowa 3, Kraków"), token, nil, &byLocation))
	assert.Len(t, byLocation.Data, 1)

	require.Equal(t, http.StatusCreated, s.do("POST", "/api/chats", "", map[string]string{
		"userId": "citizen one", "question": "Any lights out?",
	}, nil))
	var history envelope[[]struct {
		Question string `json:"question"`
	}]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/chats/citizen%20one", "", nil, &history))
	assert.Len(t, history.Data, 1)
}

func TestCommentsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ann, annToken := s.signUp("Ann", "")
	bob, bobToken := s.signUp("Bob", "")

	var created envelope[issueBody]
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/issues", annToken, map[string]any{
		"title": "Broken light", "description": "Out since Monday", "location": "Elm St", "imageUrl": "x",
	}, &created))
	base := "/api/issues/" + created.Data.ID + "/comments"

	var added envelope[[]commentBody]
	require.Equal(t, http.StatusCreated, s.do("POST", base, bobToken, map[string]string{"comment": "Still broken"}, &added))
	assert.Equal(t, "Comment added", added.Message)
	require.Len(t, added.Data, 1)
	comment := added.Data[0]
	assert.Equal(t, bob.ID, comment.User)

	var resp envelope[any]
	require.Equal(t, http.StatusForbidden, s.do("POST", base, annToken, map[string]string{"userId": bob.ID, "comment": "forged"}, &resp))

	require.Equal(t, http.StatusForbidden, s.do("DELETE", base+"/"+comment.ID, annToken, nil, &resp))
	assert.Equal(t, "Unauthorized to delete this comment", resp.Message)

	var edited envelope[commentBody]
	require.Equal(t, http.StatusOK, s.do("PUT", base+"/"+comment.ID, bobToken, map[string]string{"comment": "Fixed now"}, &edited))
	assert.Equal(t, "Fixed now", edited.Data.Text)

	require.Equal(t, http.StatusOK, s.do("DELETE", base+"/"+comment.ID, bobToken, nil, &resp))
	assert.Equal(t, "Comment deleted", resp.Message)

	var listed envelope[[]commentBody]
	require.Equal(t, http.StatusOK, s.do("GET", base, annToken, nil, &listed))
	assert.Empty(t, listed.Data)

	require.Equal(t, http.StatusNotFound, s.do("DELETE", base+"/"+comment.ID, bobToken, nil, &resp))
	assert.Equal(t, ann.ID, created.Data.ReportedByID)
}

func TestChatOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var first envelope[struct {
		ID     string `json:"id"`
		Answer string `json:"answer"`
	}]
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/chats", "", map[string]string{
		"userId": "citizen-1", "question": "What is pending?",
	}, &first))
	assert.Equal(t, "One pothole is pending on Main St.", first.Data.Answer)

	var second envelope[struct {
		ID string `json:"id"`
	}]
	require.Equal(t, http.StatusOK, s.do("POST", "/api/chats", "", map[string]string{
		"userId": "citizen-1", "question": "what is PENDING?",
	}, &second))
	assert.Equal(t, first.Data.ID, second.Data.ID)
	assert.Equal(t, 1, s.gen.calls)

	var history envelope[[]struct {
		Question string `json:"question"`
	}]
	require.Equal(t, http.StatusOK, s.do("GET", "/api/chats/citizen-1", "", nil, &history))
	require.Len(t, history.Data, 1)
	assert.Equal(t, "What is pending?", history.Data[0].Question)

	var bad envelope[any]
	require.Equal(t, http.StatusBadRequest, s.do("POST", "/api/chats", "", map[string]string{"userId": "citizen-1"}, &bad))
	assert.Equal(t, "UserId and question are required.", bad.Message)
}

func TestUserRoutesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.signUp("Root", "admin")
	ann, annToken := s.signUp("Ann", "")

	var msg message
	require.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/users/"+ann.ID, "", nil, &msg))
	assert.Equal(t, "Missing token", msg.Message)

	require.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/users/"+ann.ID, "not-a-jwt", nil, &msg))
	assert.Equal(t, "Invalid token", msg.Message)

	require.Equal(t, http.StatusUnauthorized, s.do("POST", "/api/users/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrong",
	}, &msg))
	assert.Equal(t, "Invalid credentials", msg.Message)

	var got userBody
	require.Equal(t, http.StatusOK, s.do("GET", "/api/users/"+admin.ID, annToken, nil, &got))
	assert.Equal(t, admin.ID, got.ID)

	require.Equal(t, http.StatusForbidden, s.do("GET", "/api/users", annToken, nil, &msg))
	var list []userBody
	require.Equal(t, http.StatusOK, s.do("GET", "/api/users", adminToken, nil, &list))
	assert.Len(t, list, 2)

	require.Equal(t, http.StatusForbidden, s.do("PUT", "/api/users/"+ann.ID, annToken, map[string]string{"role": "admin"}, &msg))
	var renamed struct {
		Name string `json:"name"`
	}
	require.Equal(t, http.StatusOK, s.do("PUT", "/api/users/"+ann.ID, annToken, map[string]string{"name": "Ann B"}, &renamed))
	assert.Equal(t, "Ann B", renamed.Name)

	require.Equal(t, http.StatusOK, s.do("POST", "/api/users/logout", annToken, nil, &msg))
	assert.Equal(t, "Logout successful. Tokens revoked.", msg.Message)
	require.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/users/"+ann.ID, annToken, nil, &msg))

	require.Equal(t, http.StatusForbidden, s.do("DELETE", "/api/users/"+admin.ID, annToken, nil, &msg))
	require.Equal(t, http.StatusOK, s.do("DELETE", "/api/users/"+ann.ID, adminToken, nil, &msg))
	assert.Equal(t, "User successfully deleted", msg.Message)
	require.Equal(t, http.StatusNotFound, s.do("GET", "/api/users/"+ann.ID, adminToken, nil, &msg))
	assert.Equal(t, "User Not Found", msg.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	var health struct {
		Status string `json:"status"`
		Store  string `json:"store"`
		Driver string `json:"driver"`
	}
	require.Equal(t, http.StatusOK, s.do("GET", "/api/health", "", nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "memory", health.Driver)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `civisense_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}
