// Package policy decides which actor may perform which action on which resource.
package policy

import "github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"

type Action string

const (
	ActionIssueRead        Action = "issue:read"
	ActionIssueCreate      Action = "issue:create"
	ActionIssueUpdate      Action = "issue:update"
	ActionIssueDelete      Action = "issue:delete"
	ActionIssueListFlagged Action = "issue:list-flagged"

	ActionCommentRead   Action = "comment:read"
	ActionCommentCreate Action = "comment:create"
	ActionCommentUpdate Action = "comment:update"
	ActionCommentDelete Action = "comment:delete"

	ActionUserRead   Action = "user:read"
	ActionUserList   Action = "user:list"
	ActionUserUpdate Action = "user:update"
	ActionUserDelete Action = "user:delete"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role models.Role
}

func ActorOf(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Resource identifies the target. OwnerID is the issue reporter, comment author or user id.
type Resource struct {
	OwnerID string
}

// Owned is shorthand for a resource with the given owner.
func Owned(ownerID string) Resource { return Resource{OwnerID: ownerID} }

// Can reports whether actor may perform action on res. Unknown actions deny.
func Can(actor Actor, action Action, res Resource) bool {
	if actor.ID == "" {
		return false
	}
	switch action {
	case ActionIssueUpdate, ActionIssueDelete,
		ActionCommentUpdate, ActionCommentDelete,
		ActionUserUpdate:
		return actor.IsAdmin() || (res.OwnerID != "" && actor.ID == res.OwnerID)
	case ActionIssueListFlagged, ActionUserList, ActionUserDelete:
		return actor.IsAdmin()
	case ActionIssueRead, ActionIssueCreate,
		ActionCommentRead, ActionCommentCreate,
		ActionUserRead:
		return true
	default:
		return false
	}
}
