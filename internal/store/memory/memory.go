// Package memory is an in-process store for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	issues   map[string]*models.Issue
	chats    []models.Chat
	accounts map[string]models.Account
	last     time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]models.User),
		issues:   make(map[string]*models.Issue),
		accounts: make(map[string]models.Account),
	}
}

// stamp returns a strictly increasing timestamp so orderings stay deterministic.
// Callers hold the write lock.
func (s *Store) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.UID == u.UID {
			return store.ErrDuplicate
		}
	}
	store.PrepareUser(u, s.stamp())
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) FindUserByUID(_ context.Context, uid string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.UID == uid })
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.UpdatedAt = s.stamp()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) UserSummaries(_ context.Context, ids []string) (map[string]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = *u.Summary()
		}
	}
	return out, nil
}

// Issues

func (s *Store) CreateIssue(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	store.PrepareIssue(issue, s.stamp())
	if _, ok := s.issues[issue.ID]; ok {
		return store.ErrDuplicate
	}
	s.issues[issue.ID] = issue.Clone()
	return nil
}

func (s *Store) GetIssue(_ context.Context, id string) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return issue.Clone(), nil
}

func (s *Store) ListIssues(_ context.Context, f store.IssueFilter) ([]models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		if matches(issue, f) {
			out = append(out, *issue.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matches(issue *models.Issue, f store.IssueFilter) bool {
	if f.Location != "" && issue.Location != f.Location {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.ReportedBy != "" && issue.ReportedByID != f.ReportedBy {
		return false
	}
	switch f.Flag {
	case models.FlagCritical:
		return issue.Flags.IsCritical
	case models.FlagDuplicate:
		return issue.Flags.IsDuplicate
	}
	return true
}

func (s *Store) SaveIssue(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.issues[issue.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != issue.Version {
		return store.ErrConflict
	}
	issue.Version++
	issue.UpdatedAt = s.stamp()
	saved := issue.Clone()
	saved.Reporter = nil
	s.issues[issue.ID] = saved
	return nil
}

func (s *Store) DeleteIssue(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.issues, id)
	return nil
}

// Chats

func (s *Store) FindChat(_ context.Context, userID, question string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.UserID == userID && strings.EqualFold(c.Question, question) {
			c := c
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateChat(_ context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	store.PrepareChat(chat, s.stamp())
	s.chats = append(s.chats, *chat)
	return nil
}

func (s *Store) ListChats(_ context.Context, userID string) ([]models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Chat{}
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return store.ErrDuplicate
		}
	}
	store.PrepareAccount(a, s.stamp())
	s.accounts[a.UID] = *a
	return nil
}

func (s *Store) GetAccount(_ context.Context, uid string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) FindAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			a := a
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.UID]; !ok {
		return store.ErrNotFound
	}
	for uid, existing := range s.accounts {
		if uid != a.UID && strings.EqualFold(existing.Email, a.Email) {
			return store.ErrDuplicate
		}
	}
	a.UpdatedAt = s.stamp()
	s.accounts[a.UID] = *a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[uid]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, uid)
	return nil
}
