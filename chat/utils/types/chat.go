package types

import "time"

// Turn is one prior exchange as supplied by the client in the request body.
type Turn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type GenerateRequest struct {
	Text           string `json:"text,omitempty"`
	Image          string `json:"image,omitempty"`
	History        []Turn `json:"history"`
	ConversationID string `json:"conversationId,omitempty"`
}

type GenerateResponse struct {
	Message        string `json:"message"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId"`
}

type TranscribeResponse struct {
	Transcript string `json:"transcript"`
	Success    bool   `json:"success"`
}

// ConversationSummary is one row of the conversation list: the conversation
// annotated with its derived title (first user message, if any) and message count.
type ConversationSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Title        *string   `json:"title"`
	MessageCount int64     `json:"messageCount"`
}
