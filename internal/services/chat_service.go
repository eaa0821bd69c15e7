package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
)

// ChatService answers questions grounded in the current issues and memoizes answers per user.
// Identical concurrent questions can both miss the cache and store two rows; lookups return the oldest.
type ChatService struct {
	chats     store.ChatStore
	issues    *IssueService
	generator ai.Generator
	prompt    PromptTemplate
	metrics   *metrics.Metrics
}

func NewChatService(chats store.ChatStore, issues *IssueService, generator ai.Generator, prompt PromptTemplate, m *metrics.Metrics) *ChatService {
	return &ChatService{chats: chats, issues: issues, generator: generator, prompt: prompt, metrics: m}
}

// Answer returns the cached chat for (userID, question) or generates a new one. created reports which.
func (s *ChatService) Answer(ctx context.Context, userID, question string) (*models.Chat, bool, error) {
	if blank(userID) || blank(question) {
		return nil, false, Validation("UserId and question are required.")
	}

	cached, err := s.chats.FindChat(ctx, userID, question)
	switch {
	case err == nil:
		s.metrics.ChatCacheHit()
		return cached, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, Internal("failed to look up chat history", err)
	}
	s.metrics.ChatCacheMiss()

	issues, err := s.issues.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}
	prompt := s.prompt.Render(BuildContext(issues), question)

	raw, err := s.generator.Generate(ctx, prompt)
	s.metrics.ProviderCall("gemini", err)
	if err != nil {
		slog.Error("chat generation failed", "action", "chat.answer", "user_id", userID, "error", err)
		return nil, false, Upstream("Failed to get an answer from the assistant", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, false, Upstream("The assistant returned an empty answer", nil)
	}

	chat := &models.Chat{UserID: userID, Question: question, Answer: CleanForSpeech(raw)}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, false, Internal("failed to save chat", err)
	}
	return chat, true, nil
}

// History returns the user's chats oldest first.
func (s *ChatService) History(ctx context.Context, userID string) ([]models.Chat, error) {
	if blank(userID) {
		return nil, Validation("userId is required")
	}
	chats, err := s.chats.ListChats(ctx, userID)
	if err != nil {
		return nil, Internal("failed to load chats", err)
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, nil
}
