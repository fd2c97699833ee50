package dao

import (
	"context"
	"time"

	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/models"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RetentionWindow is how long a conversation is kept, measured from creation.
const RetentionWindow = 48 * time.Hour

type ConversationDAO struct {
	DB *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{DB: db}
}

// CreateConversation inserts a conversation row with insert-or-ignore
// semantics: submitting the same id twice leaves exactly one row.
func (dao *ConversationDAO) CreateConversation(ctx context.Context, id string) error {
	conv := models.Conversation{ID: id, CreatedAt: time.Now().UTC()}
	return dao.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&conv).Error
}

// ListConversations returns all non-expired conversations newest-first, each
// with a derived title and message count.
func (dao *ConversationDAO) ListConversations(ctx context.Context) ([]types.ConversationSummary, error) {
	var summaries []types.ConversationSummary
	err := dao.DB.WithContext(ctx).Raw(`
		SELECT c.id, c.created_at,
			(SELECT content FROM messages m
			 WHERE m.conversation_id = c.id AND m.sender = 'user'
			 ORDER BY id ASC LIMIT 1) AS title,
			(SELECT COUNT(*) FROM messages m
			 WHERE m.conversation_id = c.id) AS message_count
		FROM conversations c
		ORDER BY c.created_at DESC`).Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []types.ConversationSummary{}
	}
	return summaries, nil
}

// CleanupExpired deletes every conversation older than the retention window.
// Message deletion cascades through the schema-level foreign key. Safe to call
// repeatedly and concurrently.
func (dao *ConversationDAO) CleanupExpired(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-RetentionWindow)
	return dao.DB.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Conversation{}).Error
}

// EnsureSchema idempotently creates the underlying tables if absent.
func (dao *ConversationDAO) EnsureSchema(ctx context.Context) error {
	return psql.Migrate(ctx, dao.DB)
}
