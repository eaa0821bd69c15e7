package models

import "time"

// Role is the capability tag carried by every profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a wire value to a Role. Empty input yields RoleUser.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// User is the local profile record. UID references the external identity record.
type User struct {
	ID        string    `gorm:"size:36;primaryKey" bson:"_id" json:"id"`
	Name      string    `gorm:"size:255" bson:"name" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" bson:"email" json:"email"`
	UID       string    `gorm:"column:uid;size:128;not null;uniqueIndex" bson:"uid" json:"uid"`
	Role      Role      `gorm:"size:20;not null;default:'user'" bson:"role" json:"role"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Summary returns the lightweight projection embedded in issue listings.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the (name, email) projection of a reporter.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
