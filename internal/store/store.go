// Package store defines the persistence contracts shared by every storage driver.
package store

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record was modified concurrently")
	ErrDuplicate = errors.New("record already exists")
)

// IssueFilter narrows ListIssues. Zero-valued fields do not filter.
type IssueFilter struct {
	Location   string
	Status     models.IssueStatus
	ReportedBy string
	// Flag is one of models.FlagCritical or models.FlagDuplicate; matches issues with that flag set.
	Flag string
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUID(ctx context.Context, uid string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
	// UserSummaries resolves many ids at once; unknown ids are absent from the map.
	UserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
}

type IssueStore interface {
	CreateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	// ListIssues returns matching issues newest first.
	ListIssues(ctx context.Context, f IssueFilter) ([]models.Issue, error)
	// SaveIssue writes the whole document only if the stored version equals issue.Version,
	// then increments issue.Version. A mismatch yields ErrConflict.
	SaveIssue(ctx context.Context, issue *models.Issue) error
	DeleteIssue(ctx context.Context, id string) error
}

type ChatStore interface {
	// FindChat matches question case-insensitively and exactly; the oldest match wins.
	FindChat(ctx context.Context, userID, question string) (*models.Chat, error)
	CreateChat(ctx context.Context, chat *models.Chat) error
	// ListChats returns a user's chats oldest first.
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
}

// AccountStore backs the local identity provider.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	DeleteAccount(ctx context.Context, uid string) error
}

type Store interface {
	UserStore
	IssueStore
	ChatStore
	AccountStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
