// Package ai wraps the generative-text provider behind a single-call interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator turns a prompt into text. One attempt per call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var ErrNotConfigured = errors.New("generative-text provider is not configured")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Gemini talks to Gemini through its OpenAI-compatible endpoint.
type Gemini struct {
	llm   llms.Model
	model string
}

func NewGemini(cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{llm: llm, model: cfg.Model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return out, nil
}

// Disabled is used when no API key is configured; every call fails.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
