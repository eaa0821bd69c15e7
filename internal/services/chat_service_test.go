package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatService(f *fixture, gen *fakeGenerator) *ChatService {
	return NewChatService(f.store, f.issues, gen, NewPromptTemplate(`Context:\n${projectContext}\nQ: ${question}`), nil)
}

func TestAnswerCachesPerUserCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	gen := &fakeGenerator{answer: "There is **one** pothole on Main St ."}
	svc := newChatService(f, gen)

	chat, created, err := svc.Answer(ctx, "u1", "Any potholes?")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "There is one pothole on Main St.", chat.Answer)
	assert.Equal(t, 1, gen.Calls())

	again, created, err := svc.Answer(ctx, "u1", "ANY POTHOLES?")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, chat.ID, again.ID)
	assert.Equal(t, chat.Answer, again.Answer)
	assert.Equal(t, "Any potholes?", again.Question)
	assert.Equal(t, 1, gen.Calls(), "cache hit must not call the provider")

	_, created, err = svc.Answer(ctx, "u2", "Any potholes?")
	require.NoError(t, err)
	assert.True(t, created, "cache is per user")
	assert.Equal(t, 2, gen.Calls())
}

func TestAnswerValidatesBeforeAnyCall(t *testing.T) {
	f := newFixture()
	gen := &fakeGenerator{answer: "x"}
	svc := newChatService(f, gen)

	_, _, err := svc.Answer(context.Background(), "", "q")
	assertKind(t, KindValidation, err)
	_, _, err = svc.Answer(context.Background(), "u1", "  ")
	assertKind(t, KindValidation, err)
	assert.Equal(t, 0, gen.Calls())
}

func TestAnswerProviderFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, _, err := newChatService(f, &fakeGenerator{err: errors.New("quota")}).Answer(ctx, "u1", "q")
	assertKind(t, KindUpstream, err)

	_, _, err = newChatService(f, &fakeGenerator{answer: "  \n "}).Answer(ctx, "u1", "q")
	assertKind(t, KindUpstream, err)

	history, err := newChatService(f, &fakeGenerator{}).History(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history, "failed answers are not cached")
}

func TestAnswerGroundsPromptInIssues(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	f.issue(t, ann, "Broken light")
	gen := &fakeGenerator{answer: "ok"}

	_, _, err := newChatService(f, gen).Answer(ctx, "u1", "What is broken?")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)

	prompt := gen.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, "Context:\nTitle: Broken light\n"))
	assert.Contains(t, prompt, "Reported By: ann")
	assert.Contains(t, prompt, "Flags: Critical=false, Duplicate=false")
	assert.True(t, strings.HasSuffix(prompt, "\nQ: What is broken?"))
}

func TestHistoryOldestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newChatService(f, &fakeGenerator{answer: "a"})

	for _, q := range []string{"one", "two", "three"} {
		_, _, err := svc.Answer(ctx, "u1", q)
		require.NoError(t, err)
	}
	history, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Question)
	assert.Equal(t, "three", history[2].Question)

	_, err = svc.History(ctx, "")
	assertKind(t, KindValidation, err)
}
