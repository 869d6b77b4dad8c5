package constant

// Realtime error codes sent in ErrorMessage.Code.
const (
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeInvalidMessageFormat = "INVALID_MESSAGE_FORMAT"
	CodeQAProcessingError    = "QA_PROCESSING_ERROR"
	CodeInternalServerError  = "INTERNAL_SERVER_ERROR"
)

const (
	MessageRateLimitExceeded = "Rate limit exceeded. Please wait before sending more messages."
	MessageInvalidFormat     = "Invalid message format"
	MessageQAFailed          = "Failed to process question"
	MessageInternalError     = "Internal server error"
)

// Server-pushed event types.
const (
	EventTypeDocumentStatus = "document_status"
)
