// Package storetest holds a behavioural suite every store.Store driver must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the suite. newStore must return an empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("IssueOrderingAndFilters", func(t *testing.T) { testIssueListing(t, newStore(t)) })
	t.Run("IssueVersionedSave", func(t *testing.T) { testVersionedSave(t, newStore(t)) })
	t.Run("Chats", func(t *testing.T) { testChats(t, newStore(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
}

func issue(title, location, reporter string) *models.Issue {
	return &models.Issue{Title: title, Description: "desc", Location: location, ImageURL: "https://img", ReportedByID: reporter}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{Name: "Ann", Email: "ann@example.com", UID: "uid-ann"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)

	err := s.CreateUser(ctx, &models.User{Name: "Dup", Email: "ann@example.com", UID: "uid-other"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	got, err := s.FindUserByUID(ctx, "uid-ann")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	got.Name = "Ann B"
	got.Role = models.RoleAdmin
	require.NoError(t, s.UpdateUser(ctx, got))
	reloaded, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", reloaded.Name)
	assert.Equal(t, models.RoleAdmin, reloaded.Role)

	sums, err := s.UserSummaries(ctx, []string{u.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "ann@example.com", sums[u.ID].Email)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)
}

func testIssueListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	older := issue("older", "Main St", "reporter-a")
	older.Flags.IsCritical = true
	require.NoError(t, s.CreateIssue(ctx, older))
	time.Sleep(5 * time.Millisecond)
	newer := issue("newer", "Elm St", "reporter-b")
	newer.Status = models.StatusOngoing
	require.NoError(t, s.CreateIssue(ctx, newer))

	assert.Equal(t, models.StatusPending, older.Status)
	assert.EqualValues(t, 1, older.Version)

	all, err := s.ListIssues(ctx, store.IssueFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Title)
	assert.Equal(t, "older", all[1].Title)

	cases := []struct {
		name   string
		filter store.IssueFilter
		want   string
	}{
		{"location", store.IssueFilter{Location: "Main St"}, "older"},
		{"status", store.IssueFilter{Status: models.StatusOngoing}, "newer"},
		{"reporter", store.IssueFilter{ReportedBy: "reporter-b"}, "newer"},
		{"flag", store.IssueFilter{Flag: models.FlagCritical}, "older"},
	}
	for _, tc := range cases {
		got, err := s.ListIssues(ctx, tc.filter)
		require.NoError(t, err, tc.name)
		require.Len(t, got, 1, tc.name)
		assert.Equal(t, tc.want, got[0].Title, tc.name)
	}

	none, err := s.ListIssues(ctx, store.IssueFilter{Flag: models.FlagDuplicate})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.DeleteIssue(ctx, older.ID))
	_, err = s.GetIssue(ctx, older.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteIssue(ctx, older.ID), store.ErrNotFound)
}

func testVersionedSave(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := issue("pothole", "Main St", "reporter-a")
	require.NoError(t, s.CreateIssue(ctx, created))

	first, err := s.GetIssue(ctx, created.ID)
	require.NoError(t, err)
	second, err := s.GetIssue(ctx, created.ID)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	first.Comments = append(first.Comments, models.Comment{ID: "c1", UserID: "reporter-a", Text: "still there", CreatedAt: now, UpdatedAt: now})
	first.Flags.Notes = "checked"
	require.NoError(t, s.SaveIssue(ctx, first))
	assert.EqualValues(t, 2, first.Version)

	second.Status = models.StatusResolved
	assert.ErrorIs(t, s.SaveIssue(ctx, second), store.ErrConflict)

	stored, err := s.GetIssue(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.Version)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, "checked", stored.Flags.Notes)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "still there", stored.Comments[0].Text)

	missing := issue("ghost", "x", "y")
	missing.ID = uuid.NewString()
	missing.Version = 1
	assert.ErrorIs(t, s.SaveIssue(ctx, missing), store.ErrNotFound)
}

func testChats(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateChat(ctx, &models.Chat{UserID: "u1", Question: "Any potholes on Main St?", Answer: "Yes."}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.CreateChat(ctx, &models.Chat{UserID: "u1", Question: "What is resolved?", Answer: "Nothing."}))
	require.NoError(t, s.CreateChat(ctx, &models.Chat{UserID: "u2", Question: "Any potholes on Main St?", Answer: "Other."}))

	hit, err := s.FindChat(ctx, "u1", "ANY POTHOLES ON MAIN ST?")
	require.NoError(t, err)
	assert.Equal(t, "Yes.", hit.Answer)

	_, err = s.FindChat(ctx, "u1", "Any potholes on Main St")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.FindChat(ctx, "u1", "Any potholes on Main St?.*")
	assert.ErrorIs(t, err, store.ErrNotFound)

	history, err := s.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Any potholes on Main St?", history[0].Question)

	empty, err := s.ListChats(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := &models.Account{Email: "Ann@Example.com", PasswordHash: "hash", DisplayName: "Ann"}
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NotEmpty(t, a.UID)
	assert.False(t, a.ValidSince.IsZero())

	assert.ErrorIs(t, s.CreateAccount(ctx, &models.Account{Email: "Ann@Example.com", PasswordHash: "h"}), store.ErrDuplicate)

	got, err := s.FindAccountByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.UID, got.UID)

	got.DisplayName = "Ann B"
	got.ValidSince = got.ValidSince.Add(time.Minute)
	require.NoError(t, s.UpdateAccount(ctx, got))
	reloaded, err := s.GetAccount(ctx, a.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", reloaded.DisplayName)

	require.NoError(t, s.DeleteAccount(ctx, a.UID))
	_, err = s.GetAccount(ctx, a.UID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
