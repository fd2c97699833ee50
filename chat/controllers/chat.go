package controllers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/urian121/gemini-ai-chat-api/chat/services/gemini"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/dao"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/models"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/logging"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/types"
)

// imagePlaceholder is persisted as the content of an image turn; the actual
// payload lives in the image column.
const imagePlaceholder = "[imagen]"

type conversationStore interface {
	CreateConversation(ctx context.Context, id string) error
	ListConversations(ctx context.Context) ([]types.ConversationSummary, error)
	CleanupExpired(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
}

type messageStore interface {
	SaveMessage(ctx context.Context, p dao.SaveMessageParams) (*models.Message, error)
	GetMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

type generator interface {
	Configured() bool
	GenerateContent(ctx context.Context, parts []gemini.Part) (gemini.Result, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type ChatController struct {
	conversations conversationStore
	messages      messageStore
	gemini        generator
}

func NewChatController(conversations conversationStore, messages messageStore, g generator) *ChatController {
	return &ChatController{conversations: conversations, messages: messages, gemini: g}
}

// Generate runs one request through the orchestration sequence: validate,
// resolve the conversation, persist the inbound turn(s), build the prompt,
// call Gemini, persist the outbound turn. All persistence is best-effort; a
// storage failure never aborts the exchange.
func (c *ChatController) Generate(ctx context.Context, req types.GenerateRequest) (*types.GenerateResponse, error) {
	if req.Text == "" && req.Image == "" {
		return nil, &ValidationError{Message: "Mensaje o imagen requerido"}
	}
	if !c.gemini.Configured() {
		return nil, &ConfigurationError{Message: "API key no configurada"}
	}

	history := make([]gemini.Turn, len(req.History))
	for i, turn := range req.History {
		history[i] = gemini.Turn{Sender: turn.Sender, Text: turn.Text}
	}
	parts, err := gemini.BuildPrompt(history, req.Text, req.Image)
	if err != nil {
		// malformed image URI, caught before any write or network call
		return nil, &ValidationError{Message: err.Error()}
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
		if err := c.conversations.CreateConversation(ctx, conversationID); err != nil {
			logging.ErrorLogger.Error("create conversation failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}

	if req.Text != "" {
		c.saveBestEffort(ctx, conversationID, req.Text, models.SenderUser, nil)
	}
	if req.Image != "" {
		image := req.Image
		c.saveBestEffort(ctx, conversationID, imagePlaceholder, models.SenderUser, &image)
	}

	result, err := c.gemini.GenerateContent(ctx, parts)
	if err != nil {
		return nil, err
	}

	c.saveBestEffort(ctx, conversationID, result.Text, models.SenderBot, nil)

	return &types.GenerateResponse{
		Message:        result.Text,
		Success:        result.Success,
		ConversationID: conversationID,
	}, nil
}

func (c *ChatController) saveBestEffort(ctx context.Context, conversationID, content, sender string, image *string) {
	_, err := c.messages.SaveMessage(ctx, dao.SaveMessageParams{
		ConversationID: conversationID,
		Content:        content,
		Sender:         sender,
		Image:          image,
	})
	if err != nil {
		logging.ErrorLogger.Error("save message failed",
			zap.String("conversation_id", conversationID),
			zap.String("sender", sender),
			zap.Error(err))
	}
}

// NewConversation creates an empty conversation eagerly. Unlike the lazy
// creation inside Generate, a storage failure here is surfaced.
func (c *ChatController) NewConversation(ctx context.Context) (string, error) {
	id := uuid.New().String()
	if err := c.conversations.CreateConversation(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// ListConversations ensures the schema, opportunistically expires old
// conversations, then returns the remaining ones newest-first.
func (c *ChatController) ListConversations(ctx context.Context) ([]types.ConversationSummary, error) {
	if err := c.conversations.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := c.conversations.CleanupExpired(ctx); err != nil {
		logging.ErrorLogger.Error("cleanup expired failed", zap.Error(err))
	}
	return c.conversations.ListConversations(ctx)
}

// GetMessages returns the ordered messages of one conversation; empty slice
// when the conversation is unknown.
func (c *ChatController) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if err := c.conversations.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := c.conversations.CleanupExpired(ctx); err != nil {
		logging.ErrorLogger.Error("cleanup expired failed", zap.Error(err))
	}
	return c.messages.GetMessages(ctx, conversationID)
}

// Transcribe forwards an audio payload to Gemini and returns the transcript.
func (c *ChatController) Transcribe(ctx context.Context, audio []byte, mimeType string) (*types.TranscribeResponse, error) {
	if len(audio) == 0 {
		return nil, &ValidationError{Message: "No se encontró archivo de audio"}
	}
	if !c.gemini.Configured() {
		return nil, &ConfigurationError{Message: "API key de Gemini no configurada"}
	}

	transcript, err := c.gemini.Transcribe(ctx, audio, mimeType)
	if err != nil {
		if errors.Is(err, gemini.ErrEmptyTranscript) {
			return nil, &ValidationError{Message: err.Error()}
		}
		return nil, err
	}
	return &types.TranscribeResponse{Transcript: transcript, Success: true}, nil
}
