package services

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"github.com/google/uuid"
)

// CommentService edits the comment sequence embedded in an issue.
// Every mutation is load, modify, versioned save; a lost race surfaces as a conflict.
type CommentService struct {
	issues store.IssueStore
}

func NewCommentService(issues store.IssueStore) *CommentService {
	return &CommentService{issues: issues}
}

func (s *CommentService) List(ctx context.Context, actor policy.Actor, issueID string) ([]models.Comment, error) {
	if !policy.Can(actor, policy.ActionCommentRead, policy.Resource{}) {
		return nil, Authorization("Unauthorized")
	}
	issue, err := s.load(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Comments == nil {
		return []models.Comment{}, nil
	}
	return issue.Comments, nil
}

// Add appends a comment authored by the actor and returns the full comment sequence.
func (s *CommentService) Add(ctx context.Context, actor policy.Actor, issueID, authorID, text string) ([]models.Comment, error) {
	if authorID == "" {
		authorID = actor.ID
	}
	if authorID == "" || blank(text) {
		return nil, Validation("userId and comment are required")
	}
	if authorID != actor.ID {
		return nil, Authorization("Cannot comment on behalf of another user")
	}
	if !policy.Can(actor, policy.ActionCommentCreate, policy.Resource{}) {
		return nil, Authorization("Unauthorized")
	}

	issue, err := s.load(ctx, issueID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	issue.Comments = append(issue.Comments, models.Comment{
		ID:        uuid.NewString(),
		UserID:    authorID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err := saveIssue(ctx, s.issues, issue); err != nil {
		return nil, err
	}
	return issue.Comments, nil
}

// Update replaces the text of one comment.
func (s *CommentService) Update(ctx context.Context, actor policy.Actor, issueID, commentID, text string) (*models.Comment, error) {
	if blank(text) {
		return nil, Validation("comment is required")
	}
	issue, idx, err := s.locate(ctx, issueID, commentID)
	if err != nil {
		return nil, err
	}
	c := &issue.Comments[idx]
	if !policy.Can(actor, policy.ActionCommentUpdate, policy.Owned(c.UserID)) {
		return nil, Authorization("Unauthorized to update this comment")
	}
	c.Text = text
	c.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if err := saveIssue(ctx, s.issues, issue); err != nil {
		return nil, err
	}
	updated := issue.Comments[idx]
	return &updated, nil
}

func (s *CommentService) Delete(ctx context.Context, actor policy.Actor, issueID, commentID string) error {
	issue, idx, err := s.locate(ctx, issueID, commentID)
	if err != nil {
		return err
	}
	if !policy.Can(actor, policy.ActionCommentDelete, policy.Owned(issue.Comments[idx].UserID)) {
		return Authorization("Unauthorized to delete this comment")
	}
	issue.RemoveComment(commentID)
	return saveIssue(ctx, s.issues, issue)
}

func (s *CommentService) locate(ctx context.Context, issueID, commentID string) (*models.Issue, int, error) {
	issue, err := s.load(ctx, issueID)
	if err != nil {
		return nil, 0, err
	}
	idx := issue.CommentIndex(commentID)
	if idx < 0 {
		return nil, 0, NotFound("Comment not found")
	}
	return issue, idx, nil
}

func (s *CommentService) load(ctx context.Context, issueID string) (*models.Issue, error) {
	issue, err := s.issues.GetIssue(ctx, issueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound("Issue not found")
		}
		return nil, Internal("failed to load issue", err)
	}
	return issue, nil
}
