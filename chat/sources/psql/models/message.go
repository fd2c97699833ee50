package models

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is immutable once written. Ordering within a conversation is by
// ID ascending, which matches insertion order.
type Message struct {
	ID             int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID string       `json:"conversationId" gorm:"type:uuid;not null;index"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
	Content        string       `json:"content" gorm:"type:text;not null"`
	Sender         string       `json:"sender" gorm:"type:varchar(16);not null"`
	Image          *string      `json:"image" gorm:"type:text"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"not null;default:CURRENT_TIMESTAMP"`
}
