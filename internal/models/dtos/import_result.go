package dtos

// LineError is one recovered line/row failure
type LineError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult is what both ingestion paths return to their caller.
// Skipped counts every line that was not reconciled, so a line listed in
// Errors is counted there as well; Processed = Inserted + Updated + Skipped.
type ImportResult struct {
	Source          string      `json:"source"`
	FileType        string      `json:"file_type"`
	PartnerID       uint        `json:"partner_id"`
	TransactionSets int         `json:"transaction_sets,omitempty"`
	Processed       int         `json:"processed"`
	Inserted        int         `json:"inserted"`
	Updated         int         `json:"updated"`
	Skipped         int         `json:"skipped"`
	Errors          []LineError `json:"errors"`
	Warnings        []string    `json:"warnings,omitempty"`
}

// AddError records a line-level failure. Callers count the line in Skipped themselves.
func (r *ImportResult) AddError(line int, code, message string) {
	r.Errors = append(r.Errors, LineError{Line: line, Code: code, Message: message})
}

// AddWarning records a non-fatal observation
func (r *ImportResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// HasErrors reports whether any line was rejected
func (r *ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}
