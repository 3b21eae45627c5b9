package audit

import (
	"fmt"
	"time"
)

// HistoryRecord is one audited request made by an authenticated account
type HistoryRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	HTTPMethod  string    `json:"http_method"`
	Path        string    `json:"path"`
	Timestamp   time.Time `json:"timestamp"`
	QueryString string    `json:"query_string"`
	BodyContent string    `json:"body_content"`
}

// ExportFormat represents the format for exporting request history
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)

// ContentType returns the media type served for the format
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatNDJSON:
		return "application/x-ndjson"
	default:
		return "application/json"
	}
}

// ParseExportFormat maps a ?format= value to an ExportFormat; "" means JSON
func ParseExportFormat(value string) (ExportFormat, error) {
	switch ExportFormat(value) {
	case "", ExportFormatJSON:
		return ExportFormatJSON, nil
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatNDJSON:
		return ExportFormatNDJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q", value)
	}
}
