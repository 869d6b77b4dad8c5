package entity

import "time"

// ConversationTurn is one answered question within a conversation.
type ConversationTurn struct {
	DocumentId uint      `json:"document_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}
