package store

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/google/uuid"
)

// PrepareIssue fills identity, defaults and timestamps for a new issue.
func PrepareIssue(issue *models.Issue, now time.Time) {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.Status == "" {
		issue.Status = models.StatusPending
	}
	if issue.Comments == nil {
		issue.Comments = []models.Comment{}
	}
	issue.Version = 1
	issue.CreatedAt = now
	issue.UpdatedAt = now
}

func PrepareUser(u *models.User, now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now
}

func PrepareChat(c *models.Chat, now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
}

func PrepareAccount(a *models.Account, now time.Time) {
	if a.UID == "" {
		a.UID = uuid.NewString()
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.ValidSince.IsZero() {
		a.ValidSince = now
	}
}
