package dao

import (
	"context"
	"time"

	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/models"

	"gorm.io/gorm"
)

type MessageDAO struct {
	DB *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{DB: db}
}

type SaveMessageParams struct {
	ConversationID string
	Content        string
	Sender         string
	Image          *string
}

// SaveMessage appends one message row. Fails with a constraint violation when
// the conversation does not exist.
func (dao *MessageDAO) SaveMessage(ctx context.Context, p SaveMessageParams) (*models.Message, error) {
	msg := models.Message{
		ConversationID: p.ConversationID,
		Content:        p.Content,
		Sender:         p.Sender,
		Image:          p.Image,
		CreatedAt:      time.Now().UTC(),
	}
	if err := dao.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages returns the messages of a conversation ascending by id. An
// unknown or empty conversation yields an empty slice, not an error.
func (dao *MessageDAO) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := dao.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
