package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvColumns match the JSON field names of HistoryRecord
var csvColumns = []string{
	"id",
	"user_id",
	"http_method",
	"path",
	"timestamp",
	"query_string",
	"body_content",
}

func csvRow(record *HistoryRecord) []string {
	return []string{
		strconv.FormatInt(record.ID, 10),
		strconv.FormatInt(record.UserID, 10),
		record.HTTPMethod,
		record.Path,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.QueryString,
		record.BodyContent,
	}
}

// writeExport encodes records to w in format. A nil slice is written as an
// empty JSON array, never null.
func writeExport(w io.Writer, records []*HistoryRecord, format ExportFormat) error {
	switch format {
	case ExportFormatCSV:
		return writeCSV(w, records)
	case ExportFormatNDJSON:
		enc := json.NewEncoder(w)
		for _, record := range records {
			if err := enc.Encode(record); err != nil {
				return fmt.Errorf("encode history record %d: %w", record.ID, err)
			}
		}
		return nil
	default:
		if records == nil {
			records = []*HistoryRecord{}
		}
		if err := json.NewEncoder(w).Encode(records); err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		return nil
	}
}

func writeCSV(w io.Writer, records []*HistoryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("write history csv header: %w", err)
	}
	for _, record := range records {
		if err := cw.Write(csvRow(record)); err != nil {
			return fmt.Errorf("write history csv row %d: %w", record.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
