package dto

// QuestionMessage is the inbound realtime frame.
type QuestionMessage struct {
	DocumentId     uint                   `json:"documentId" validate:"required,gt=0"`
	Question       string                 `json:"question" validate:"required"`
	ConversationId string                 `json:"conversationId,omitempty" validate:"omitempty,max=128"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type AnswerMessage struct {
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	Context        string  `json:"context,omitempty"`
	ConversationId string  `json:"conversationId"`
}

type ErrorMessage struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Code   string `json:"code"`
}

// EventMessage wraps server-pushed notifications (e.g. document status changes).
type EventMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
