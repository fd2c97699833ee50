package models

import "time"

// Conversation groups an ordered sequence of messages under one UUID.
// Rows are created lazily on the first message of a session and expire
// after the retention window.
type Conversation struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:CURRENT_TIMESTAMP"`
}
