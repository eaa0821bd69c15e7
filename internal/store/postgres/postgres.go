// Package postgres implements store.Store on PostgreSQL through GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open connection. Run database.Migrate before use.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects and migrates.
func Open(dsn string) (*Store, error) {
	db, err := database.Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return New(db), nil
}

// DB exposes the underlying handle for the log sink.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return database.Close(s.db)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

func now() time.Time { return time.Now().UTC() }

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	store.PrepareUser(u, now())
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByUID(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Scopes(oldestFirst).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = now()
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"updated_at": u.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.UserSummary
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("id", "name", "email").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// Issues

func (s *Store) CreateIssue(ctx context.Context, issue *models.Issue) error {
	store.PrepareIssue(issue, now())
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error; err != nil {
		return nil, translate(err)
	}
	if issue.Comments == nil {
		issue.Comments = []models.Comment{}
	}
	return &issue, nil
}

func (s *Store) ListIssues(ctx context.Context, f store.IssueFilter) ([]models.Issue, error) {
	var issues []models.Issue
	if err := s.db.WithContext(ctx).Scopes(issueFilter(f), newestFirst).Find(&issues).Error; err != nil {
		return nil, err
	}
	for i := range issues {
		if issues[i].Comments == nil {
			issues[i].Comments = []models.Comment{}
		}
	}
	return issues, nil
}

func (s *Store) SaveIssue(ctx context.Context, issue *models.Issue) error {
	expected := issue.Version
	updatedAt := now()
	res := s.db.WithContext(ctx).Model(&models.Issue{}).
		Where("id = ? AND version = ?", issue.ID, expected).
		Updates(map[string]interface{}{
			"title":             issue.Title,
			"description":       issue.Description,
			"location":          issue.Location,
			"image_url":         issue.ImageURL,
			"status":            string(issue.Status),
			"flag_is_critical":  issue.Flags.IsCritical,
			"flag_is_duplicate": issue.Flags.IsDuplicate,
			"flag_notes":        issue.Flags.Notes,
			"comments":          issue.Comments,
			"version":           expected + 1,
			"updated_at":        updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", issue.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	issue.Version = expected + 1
	issue.UpdatedAt = updatedAt
	return nil
}

func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Issue{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Chats

func (s *Store) FindChat(ctx context.Context, userID, question string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(question) = LOWER(?)", userID, question).
		Scopes(oldestFirst).
		First(&chat).Error
	if err != nil {
		return nil, translate(err)
	}
	return &chat, nil
}

func (s *Store) CreateChat(ctx context.Context, chat *models.Chat) error {
	store.PrepareChat(chat, now())
	return s.db.WithContext(ctx).Create(chat).Error
}

func (s *Store) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	chats := []models.Chat{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Scopes(oldestFirst).Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	store.PrepareAccount(a, now())
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *models.Account) error {
	a.UpdatedAt = now()
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("uid = ?", a.UID).Updates(map[string]interface{}{
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"display_name":  a.DisplayName,
		"valid_since":   a.ValidSince,
		"updated_at":    a.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, uid string) error {
	res := s.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// System logs

func (s *Store) WriteSystemLogs(ctx context.Context, logs []models.SystemLog) error {
	return s.db.WithContext(ctx).CreateInBatches(logs, 50).Error
}

func (s *Store) PurgeSystemLogs(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", before).Delete(&models.SystemLog{})
	return res.RowsAffected, res.Error
}
