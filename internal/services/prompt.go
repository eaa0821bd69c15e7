package services

import (
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
)

const (
	contextPlaceholder  = "${projectContext}"
	questionPlaceholder = "${question}"
)

const defaultPrompt = `You are CiviSense, an assistant for a municipal issue tracker.
Answer the citizen's question using only the reported issues below. If the issues do not contain the answer, say so briefly.

Reported issues:
${projectContext}

Question: ${question}
Answer in plain sentences suitable for reading aloud.`

// PromptTemplate is the configured chat prompt with context and question placeholders.
type PromptTemplate struct {
	Text string
}

// NewPromptTemplate converts literal "\n" sequences in text to newlines.
// Empty text selects the built-in default.
func NewPromptTemplate(text string) PromptTemplate {
	if strings.TrimSpace(text) == "" {
		return PromptTemplate{Text: defaultPrompt}
	}
	return PromptTemplate{Text: strings.ReplaceAll(text, `\n`, "\n")}
}

// Render substitutes the first occurrence of each placeholder.
func (p PromptTemplate) Render(projectContext, question string) string {
	out := strings.Replace(p.Text, contextPlaceholder, projectContext, 1)
	return strings.Replace(out, questionPlaceholder, question, 1)
}

// BuildContext renders issues as fixed-field blocks separated by a blank line.
func BuildContext(issues []models.Issue) string {
	blocks := make([]string, 0, len(issues))
	for i := range issues {
		blocks = append(blocks, contextBlock(&issues[i]))
	}
	return strings.Join(blocks, "\n\n")
}

func contextBlock(issue *models.Issue) string {
	reporter := "Unknown"
	if issue.Reporter != nil && issue.Reporter.Name != "" {
		reporter = issue.Reporter.Name
	}
	return fmt.Sprintf("Title: %s\nDescription: %s\nLocation: %s\nStatus: %s\nReported By: %s\nFlags: Critical=%t, Duplicate=%t",
		issue.Title, issue.Description, issue.Location, issue.Status, reporter,
		issue.Flags.IsCritical, issue.Flags.IsDuplicate)
}
