package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	issues   *IssueService
	comments *CommentService
}

func newFixture() *fixture {
	st := memory.New()
	return &fixture{
		store:    st,
		issues:   NewIssueService(st, st),
		comments: NewCommentService(st),
	}
}

func (f *fixture) user(t *testing.T, name string, role models.Role) policy.Actor {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", UID: "uid-" + name, Role: role}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return policy.ActorOf(u)
}

func (f *fixture) issue(t *testing.T, reporter policy.Actor, title string) *models.Issue {
	t.Helper()
	issue, err := f.issues.Create(context.Background(), reporter, &dto.CreateIssueRequest{
		Title:       title,
		Description: "Deep pothole",
		Location:    "Main St",
		ImageURL:    "https://img.example.com/1.jpg",
	})
	require.NoError(t, err)
	return issue
}

func assertKind(t *testing.T, want Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, KindOf(err), "error: %v", err)
}

func ptr[T any](v T) *T { return &v }

// fakeGenerator counts calls and returns a canned answer.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	answer  string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
