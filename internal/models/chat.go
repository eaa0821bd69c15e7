package models

import "time"

// Chat is an immutable question/answer pair that doubles as a per-user answer cache.
type Chat struct {
	ID        string    `gorm:"size:36;primaryKey" bson:"_id" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_chats_user_created" bson:"userId" json:"userId"`
	Question  string    `gorm:"type:text;not null" bson:"question" json:"question"`
	Answer    string    `gorm:"type:text;not null" bson:"answer" json:"answer"`
	CreatedAt time.Time `gorm:"index:idx_chats_user_created" bson:"createdAt" json:"createdAt"`
}
