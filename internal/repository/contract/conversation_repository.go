package contract

import (
	"context"

	"pdf-qa-be/internal/entity"
)

// ConversationRepository holds bounded per-conversation history, oldest turn first.
type ConversationRepository interface {
	History(ctx context.Context, conversationId string) ([]entity.ConversationTurn, error)
	// Append adds turn and keeps only the most recent maxTurns.
	Append(ctx context.Context, conversationId string, turn entity.ConversationTurn, maxTurns int) error
	Delete(ctx context.Context, conversationId string) error
}
