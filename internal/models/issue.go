package models

import (
	"time"

	"gorm.io/datatypes"
)

// IssueStatus is the triage state of an issue.
type IssueStatus string

const (
	StatusPending  IssueStatus = "Pending"
	StatusOngoing  IssueStatus = "Ongoing"
	StatusResolved IssueStatus = "Resolved"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusResolved:
		return true
	}
	return false
}

// Flag names accepted by flag-filtered listings.
const (
	FlagCritical  = "isCritical"
	FlagDuplicate = "isDuplicate"
)

func ValidFlag(name string) bool {
	return name == FlagCritical || name == FlagDuplicate
}

// Flags are triage annotations set independently of status.
type Flags struct {
	IsCritical  bool   `gorm:"not null;default:false" bson:"isCritical" json:"isCritical"`
	IsDuplicate bool   `gorm:"not null;default:false" bson:"isDuplicate" json:"isDuplicate"`
	Notes       string `gorm:"type:text" bson:"notes" json:"notes"`
}

// Comment lives only inside its issue's comment sequence.
type Comment struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user" json:"user"`
	Text      string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Issue is stored as a single document: flags and comments travel with it.
// Version guards read-modify-write cycles on the whole document.
type Issue struct {
	ID           string                       `gorm:"size:36;primaryKey" bson:"_id" json:"id"`
	Title        string                       `gorm:"size:255;not null" bson:"title" json:"title"`
	Description  string                       `gorm:"type:text;not null" bson:"description" json:"description"`
	Location     string                       `gorm:"size:255;not null;index" bson:"location" json:"location"`
	ImageURL     string                       `gorm:"type:text;not null" bson:"imageUrl" json:"imageUrl"`
	Status       IssueStatus                  `gorm:"size:20;not null;default:'Pending';index" bson:"status" json:"status"`
	ReportedByID string                       `gorm:"size:36;not null;index" bson:"reportedBy" json:"reportedById"`
	Reporter     *UserSummary                 `gorm:"-" bson:"-" json:"reportedBy"`
	Flags        Flags                        `gorm:"embedded;embeddedPrefix:flag_" bson:"flags" json:"flags"`
	Comments     datatypes.JSONSlice[Comment] `gorm:"type:jsonb" bson:"comments" json:"comments"`
	Version      int64                        `gorm:"not null;default:1" bson:"version" json:"version"`
	CreatedAt    time.Time                    `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time                    `bson:"updatedAt" json:"updatedAt"`
}

// CommentIndex returns the position of the comment with the given id, or -1.
func (i *Issue) CommentIndex(id string) int {
	for n := range i.Comments {
		if i.Comments[n].ID == id {
			return n
		}
	}
	return -1
}

// RemoveComment drops the comment with the given id, preserving order.
func (i *Issue) RemoveComment(id string) bool {
	n := i.CommentIndex(id)
	if n < 0 {
		return false
	}
	out := make(datatypes.JSONSlice[Comment], 0, len(i.Comments)-1)
	out = append(out, i.Comments[:n]...)
	out = append(out, i.Comments[n+1:]...)
	i.Comments = out
	return true
}

// Clone returns a deep copy safe to mutate independently.
func (i *Issue) Clone() *Issue {
	c := *i
	c.Comments = make(datatypes.JSONSlice[Comment], len(i.Comments))
	copy(c.Comments, i.Comments)
	if i.Reporter != nil {
		r := *i.Reporter
		c.Reporter = &r
	}
	return &c
}
