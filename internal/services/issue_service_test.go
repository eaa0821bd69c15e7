package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIssueDefaults(t *testing.T) {
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)

	issue := f.issue(t, ann, "Pothole")

	assert.Equal(t, models.StatusPending, issue.Status)
	assert.Equal(t, models.Flags{IsCritical: false, IsDuplicate: false, Notes: ""}, issue.Flags)
	assert.Equal(t, ann.ID, issue.ReportedByID)
	require.NotNil(t, issue.Reporter)
	assert.Equal(t, "ann", issue.Reporter.Name)
}

func TestCreateIssueValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	admin := f.user(t, "root", models.RoleAdmin)

	_, err := f.issues.Create(ctx, ann, &dto.CreateIssueRequest{Title: "t", Description: "d", Location: "l"})
	assertKind(t, KindValidation, err)

	_, err = f.issues.Create(ctx, ann, &dto.CreateIssueRequest{Title: "t", Description: "d", Location: "l", ImageURL: "i", Status: "Closed"})
	assertKind(t, KindValidation, err)

	_, err = f.issues.Create(ctx, ann, &dto.CreateIssueRequest{Title: "t", Description: "d", Location: "l", ImageURL: "i", UserID: bob.ID})
	assertKind(t, KindAuthorization, err)

	_, err = f.issues.Create(ctx, admin, &dto.CreateIssueRequest{Title: "t", Description: "d", Location: "l", ImageURL: "i", UserID: "no-such-user"})
	assertKind(t, KindValidation, err)

	issue, err := f.issues.Create(ctx, admin, &dto.CreateIssueRequest{
		Title: "t", Description: "d", Location: "l", ImageURL: "i", UserID: bob.ID,
		Status: "Ongoing", Flags: &dto.FlagsInput{IsCritical: ptr(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, issue.ReportedByID)
	assert.Equal(t, models.StatusOngoing, issue.Status)
	assert.True(t, issue.Flags.IsCritical)
}

func TestUpdateMergesFlagsPerField(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	issue := f.issue(t, ann, "Pothole")

	_, err := f.issues.Update(ctx, ann, issue.ID, &dto.UpdateIssueRequest{
		Flags: &dto.FlagsInput{IsCritical: ptr(true), Notes: ptr("x")},
	})
	require.NoError(t, err)

	updated, err := f.issues.Update(ctx, ann, issue.ID, &dto.UpdateIssueRequest{
		Flags: &dto.FlagsInput{IsDuplicate: ptr(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Flags{IsCritical: true, IsDuplicate: true, Notes: "x"}, updated.Flags)
	assert.Equal(t, "Pothole", updated.Title)
}

func TestUpdateAuthorizationAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	admin := f.user(t, "root", models.RoleAdmin)
	issue := f.issue(t, ann, "Pothole")

	_, err := f.issues.Update(ctx, bob, issue.ID, &dto.UpdateIssueRequest{Title: ptr("hijack")})
	assertKind(t, KindAuthorization, err)

	_, err = f.issues.Update(ctx, ann, issue.ID, &dto.UpdateIssueRequest{Status: ptr("Closed")})
	assertKind(t, KindValidation, err)

	updated, err := f.issues.Update(ctx, admin, issue.ID, &dto.UpdateIssueRequest{Status: ptr("Resolved")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)

	_, err = f.issues.Update(ctx, ann, "missing", &dto.UpdateIssueRequest{})
	assertKind(t, KindNotFound, err)
}

func TestDeleteIssue(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	issue := f.issue(t, ann, "Pothole")

	assertKind(t, KindAuthorization, f.issues.Delete(ctx, bob, issue.ID))
	require.NoError(t, f.issues.Delete(ctx, ann, issue.ID))
	assertKind(t, KindNotFound, f.issues.Delete(ctx, ann, issue.ID))
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	bob := f.user(t, "bob", models.RoleUser)
	admin := f.user(t, "root", models.RoleAdmin)

	first := f.issue(t, ann, "first")
	second := f.issue(t, bob, "second")
	_, err := f.issues.Update(ctx, bob, second.ID, &dto.UpdateIssueRequest{
		Location: ptr("Elm St"),
		Flags:    &dto.FlagsInput{IsCritical: ptr(true)},
	})
	require.NoError(t, err)

	all, err := f.issues.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	require.NotNil(t, all[1].Reporter)
	assert.Equal(t, "ann@example.com", all[1].Reporter.Email)

	byLoc, err := f.issues.ListByLocation(ctx, "Main St")
	require.NoError(t, err)
	require.Len(t, byLoc, 1)
	assert.Equal(t, first.ID, byLoc[0].ID)

	byReporter, err := f.issues.ListByReporter(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, byReporter, 1)

	pending, err := f.issues.ListByStatus(ctx, "Pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.issues.ListByStatus(ctx, "Closed")
	assertKind(t, KindValidation, err)

	_, err = f.issues.ListByFlag(ctx, admin, "isUrgent")
	assertKind(t, KindValidation, err)

	_, err = f.issues.ListByFlag(ctx, ann, "isCritical")
	assertKind(t, KindAuthorization, err)

	critical, err := f.issues.ListByFlag(ctx, admin, "isCritical")
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, second.ID, critical[0].ID)

	_, err = f.issues.ListByLocation(ctx, " ")
	assertKind(t, KindValidation, err)
	_, err = f.issues.ListByReporter(ctx, "")
	assertKind(t, KindValidation, err)
}

func TestMissingReporterRendersNil(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ann := f.user(t, "ann", models.RoleUser)
	f.issue(t, ann, "orphan")
	require.NoError(t, f.store.DeleteUser(ctx, ann.ID))

	all, err := f.issues.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Reporter)
}
