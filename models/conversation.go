package models

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	User      string `json:"user" bson:"user"`
	Assistant string `json:"assistant" bson:"assistant"`
}

type ChatRequest struct {
	Message             string `json:"message" binding:"required"`
	SessionID           string `json:"sessionId"`
	ConversationHistory []Turn `json:"conversationHistory"`
	ClientTimestamp     string `json:"clientTimestamp"`
}

type MessageType string

const (
	MessageGeneric      MessageType = "generic-advice"
	MessagePersonalized MessageType = "personalized-advice"
)

type ResponseSource string

const (
	SourceCache   ResponseSource = "cache"
	SourceGeneral ResponseSource = "general"
	SourcePrompt  ResponseSource = "prompt"
)

// RoutingInfo is the routing decision as reported to the caller.
type RoutingInfo struct {
	MessageType          MessageType    `json:"messageType" bson:"messageType"`
	ResponseSource       ResponseSource `json:"responseSource" bson:"responseSource"`
	UsedUserData         bool           `json:"usedUserData" bson:"usedUserData"`
	EstimatedTokensSaved int            `json:"estimatedTokensSaved" bson:"estimatedTokensSaved"`
}

type ChatResponse struct {
	Success               bool            `json:"success"`
	Message               string          `json:"message"`
	SessionID             string          `json:"sessionId"`
	ExtractedData         map[string]bool `json:"extractedData"`
	Confidence            float64         `json:"confidence"`
	SuggestPlanGeneration bool            `json:"suggestPlanGeneration"`
	Timestamp             time.Time       `json:"timestamp"`
	Routing               *RoutingInfo    `json:"routing,omitempty"`
}

// ConversationLog is one entry of the append-only ai_conversations log.
type ConversationLog struct {
	ID              string          `json:"id" bson:"_id,omitempty"`
	UserID          string          `json:"userId" bson:"userId"`
	SessionID       string          `json:"sessionId" bson:"sessionId"`
	UserMessage     string          `json:"userMessage" bson:"userMessage"`
	AIResponse      string          `json:"aiResponse" bson:"aiResponse"`
	ExtractedData   map[string]any  `json:"extractedData" bson:"extractedData"`
	UpdatedSections map[string]bool `json:"updatedSections" bson:"updatedSections"`
	Confidence      float64         `json:"confidence" bson:"confidence"`
	Routing         RoutingInfo     `json:"routing" bson:"routing"`
	Success         bool            `json:"success" bson:"success"`
	ClientTimestamp string          `json:"clientTimestamp,omitempty" bson:"clientTimestamp,omitempty"`
	Timestamp       time.Time       `json:"timestamp" bson:"timestamp"`
}

// Session is a chat session row in Postgres.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
}

// ProfileUpdateEvent is published after a turn changes a user's documents.
type ProfileUpdateEvent struct {
	UserID          string          `json:"user_id"`
	SessionID       string          `json:"session_id"`
	Source          string          `json:"source"`
	UpdatedSections map[string]bool `json:"updated_sections"`
	Confidence      float64         `json:"confidence"`
	Message         string          `json:"message,omitempty"`
	Timestamp       int64           `json:"timestamp"`
}
