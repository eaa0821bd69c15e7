package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
)

type IssueService struct {
	issues store.IssueStore
	users  store.UserStore
}

func NewIssueService(issues store.IssueStore, users store.UserStore) *IssueService {
	return &IssueService{issues: issues, users: users}
}

func (s *IssueService) Create(ctx context.Context, actor policy.Actor, req *dto.CreateIssueRequest) (*models.Issue, error) {
	reporterID := strings.TrimSpace(req.UserID)
	if reporterID == "" {
		reporterID = actor.ID
	}
	if reporterID == "" || blank(req.Title) || blank(req.Description) || blank(req.Location) || blank(req.ImageURL) {
		return nil, Validation("All fields are required including userId")
	}
	if reporterID != actor.ID && !actor.IsAdmin() {
		return nil, Authorization("Cannot report an issue on behalf of another user")
	}
	if !policy.Can(actor, policy.ActionIssueCreate, policy.Owned(reporterID)) {
		return nil, Authorization("Unauthorized")
	}

	status := models.StatusPending
	if req.Status != "" {
		status = models.IssueStatus(req.Status)
		if !status.Valid() {
			return nil, Validation("Invalid status value")
		}
	}

	reporter, err := s.users.GetUser(ctx, reporterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Validation("Reporter does not exist")
		}
		return nil, Internal("failed to load reporter", err)
	}

	issue := &models.Issue{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		ImageURL:     req.ImageURL,
		Status:       status,
		ReportedByID: reporterID,
		Flags:        mergeFlags(models.Flags{}, req.Flags),
	}
	if err := s.issues.CreateIssue(ctx, issue); err != nil {
		return nil, Internal("failed to create issue", err)
	}
	issue.Reporter = reporter.Summary()
	return issue, nil
}

// Update merges the provided fields into the stored issue. Flags merge per sub-field.
func (s *IssueService) Update(ctx context.Context, actor policy.Actor, id string, req *dto.UpdateIssueRequest) (*models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionIssueUpdate, policy.Owned(issue.ReportedByID)) {
		return nil, Authorization("Unauthorized")
	}

	if req.Status != nil {
		status := models.IssueStatus(*req.Status)
		if !status.Valid() {
			return nil, Validation("Invalid status value")
		}
		issue.Status = status
	}
	if req.Title != nil {
		issue.Title = *req.Title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Location != nil {
		issue.Location = *req.Location
	}
	if req.ImageURL != nil {
		issue.ImageURL = *req.ImageURL
	}
	issue.Flags = mergeFlags(issue.Flags, req.Flags)

	if err := s.save(ctx, issue); err != nil {
		return nil, err
	}
	if err := s.resolveReporters(ctx, []*models.Issue{issue}); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *IssueService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	issue, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Can(actor, policy.ActionIssueDelete, policy.Owned(issue.ReportedByID)) {
		return Authorization("Unauthorized")
	}
	if err := s.issues.DeleteIssue(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("Issue not found")
		}
		return Internal("failed to delete issue", err)
	}
	return nil
}

func (s *IssueService) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolveReporters(ctx, []*models.Issue{issue}); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *IssueService) ListAll(ctx context.Context) ([]models.Issue, error) {
	return s.list(ctx, store.IssueFilter{})
}

func (s *IssueService) ListByLocation(ctx context.Context, location string) ([]models.Issue, error) {
	if blank(location) {
		return nil, Validation("Location parameter is required")
	}
	return s.list(ctx, store.IssueFilter{Location: location})
}

func (s *IssueService) ListByReporter(ctx context.Context, userID string) ([]models.Issue, error) {
	if blank(userID) {
		return nil, Validation("userId is required in query")
	}
	return s.list(ctx, store.IssueFilter{ReportedBy: userID})
}

func (s *IssueService) ListByStatus(ctx context.Context, status string) ([]models.Issue, error) {
	st := models.IssueStatus(status)
	if !st.Valid() {
		return nil, Validation("Invalid status value")
	}
	return s.list(ctx, store.IssueFilter{Status: st})
}

func (s *IssueService) ListByFlag(ctx context.Context, actor policy.Actor, flag string) ([]models.Issue, error) {
	if !policy.Can(actor, policy.ActionIssueListFlagged, policy.Resource{}) {
		return nil, Authorization("Access Denied")
	}
	if !models.ValidFlag(flag) {
		return nil, Validation("Invalid flag type")
	}
	return s.list(ctx, store.IssueFilter{Flag: flag})
}

func (s *IssueService) list(ctx context.Context, f store.IssueFilter) ([]models.Issue, error) {
	issues, err := s.issues.ListIssues(ctx, f)
	if err != nil {
		return nil, Internal("failed to list issues", err)
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	ptrs := make([]*models.Issue, len(issues))
	for i := range issues {
		ptrs[i] = &issues[i]
	}
	if err := s.resolveReporters(ctx, ptrs); err != nil {
		return nil, err
	}
	return issues, nil
}

// resolveReporters fills Reporter from one batched lookup. Unknown reporters stay nil.
func (s *IssueService) resolveReporters(ctx context.Context, issues []*models.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(issues))
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		if _, ok := seen[issue.ReportedByID]; !ok {
			seen[issue.ReportedByID] = struct{}{}
			ids = append(ids, issue.ReportedByID)
		}
	}
	summaries, err := s.users.UserSummaries(ctx, ids)
	if err != nil {
		return Internal("failed to resolve reporters", err)
	}
	for _, issue := range issues {
		if sum, ok := summaries[issue.ReportedByID]; ok {
			sum := sum
			issue.Reporter = &sum
		} else {
			issue.Reporter = nil
		}
	}
	return nil
}

func (s *IssueService) load(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.issues.GetIssue(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound("Issue not found")
		}
		return nil, Internal("failed to load issue", err)
	}
	return issue, nil
}

// save performs the versioned write shared by issue and comment mutations.
func (s *IssueService) save(ctx context.Context, issue *models.Issue) error {
	return saveIssue(ctx, s.issues, issue)
}

func saveIssue(ctx context.Context, issues store.IssueStore, issue *models.Issue) error {
	err := issues.SaveIssue(ctx, issue)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return Conflict("Issue was modified by another request, please retry")
	case errors.Is(err, store.ErrNotFound):
		return NotFound("Issue not found")
	default:
		return Internal("failed to save issue", err)
	}
}

func mergeFlags(current models.Flags, in *dto.FlagsInput) models.Flags {
	if in == nil {
		return current
	}
	if in.IsCritical != nil {
		current.IsCritical = *in.IsCritical
	}
	if in.IsDuplicate != nil {
		current.IsDuplicate = *in.IsDuplicate
	}
	if in.Notes != nil {
		current.Notes = *in.Notes
	}
	return current
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
