package constant

// Document lifecycle event codes published on the event bus.
const (
	EventDocumentUploaded  = "DOCUMENT_UPLOADED"
	EventDocumentProcessed = "DOCUMENT_PROCESSED"
	EventDocumentFailed    = "DOCUMENT_FAILED"
	EventDocumentDeleted   = "DOCUMENT_DELETED"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)
