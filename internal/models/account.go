package models

import "time"

// Account is a credential record owned by the local identity provider.
// Tokens issued before ValidSince are rejected.
type Account struct {
	UID          string    `gorm:"column:uid;size:128;primaryKey" bson:"_id" json:"uid"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" bson:"email" json:"email"`
	PasswordHash string    `gorm:"not null" bson:"passwordHash" json:"-"`
	DisplayName  string    `gorm:"size:255" bson:"displayName" json:"displayName"`
	ValidSince   time.Time `gorm:"not null" bson:"validSince" json:"validSince"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
