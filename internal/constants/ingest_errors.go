package constants

// Ingestion Error Codes
// These constants classify every failure the ingestion paths can report

// Batch-fatal errors
const (
	ErrCodeStructural  = "STRUCTURAL_ERROR"
	ErrCodeMapping     = "MAPPING_ERROR"
	ErrCodePersistence = "PERSISTENCE_ERROR"
)

// Line/row-level errors
const (
	ErrCodeSegment    = "SEGMENT_ERROR"
	ErrCodeRow        = "ROW_ERROR"
	ErrCodeDateFormat = "DATE_FORMAT_ERROR"
)

// Orchestrator errors
const (
	ErrCodeTransport = "TRANSPORT_ERROR"
	ErrCodeLockHeld  = "LOCK_HELD"
)

// Error Messages
// Human-readable messages corresponding to error codes

var IngestErrorMessages = map[string]string{
	ErrCodeStructural:  "The interchange is missing a required envelope segment",
	ErrCodeMapping:     "The file header is missing a required column",
	ErrCodePersistence: "The import could not be committed and was rolled back",
	ErrCodeSegment:     "A segment is malformed and was skipped",
	ErrCodeRow:         "A row is missing required values and was skipped",
	ErrCodeDateFormat:  "A date value could not be parsed unambiguously",
	ErrCodeTransport:   "The remote file transport failed",
	ErrCodeLockHeld:    "Another orchestrator instance holds the lock",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := IngestErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
