package platform

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
)

// ExportFormat is the closed set of export_history output formats (spec
// §4.6 "export history as JSON, CSV, or a summary markdown").
type ExportFormat string

const (
	ExportJSON    ExportFormat = "json"
	ExportCSV     ExportFormat = "csv"
	ExportSummary ExportFormat = "summary"
)

// ExportHistory renders a document's execution history in format.
func (p *Platform) ExportHistory(documentID string, format ExportFormat) ([]byte, error) {
	entries := p.store.History(documentID)

	switch format {
	case ExportJSON:
		return json.MarshalIndent(entries, "", "  ")
	case ExportCSV:
		return exportCSV(entries)
	case ExportSummary:
		return exportSummary(documentID, entries), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func exportCSV(entries []domain.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"key", "mode", "iterations", "converged", "duration_ms", "error"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		errMsg := ""
		if !e.Result.Success {
			errMsg = executionFailureMessage(e.Result)
		}
		row := []string{
			e.Key,
			string(e.Result.Mode),
			strconv.Itoa(e.Result.Iterations),
			strconv.FormatBool(e.Result.Converged),
			strconv.FormatInt(e.Result.DurationMs, 10),
			errMsg,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportSummary(documentID string, entries []domain.HistoryEntry) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Execution history: %s\n\n", documentID)
	fmt.Fprintf(&buf, "Total runs: %d\n\n", len(entries))
	for _, e := range entries {
		status := "success"
		if !e.Result.Success {
			status = fmt.Sprintf("failed (%s)", executionFailureKind(e.Result))
		}
		fmt.Fprintf(&buf, "- `%s`: %s, mode=%s, iterations=%d, duration=%dms\n",
			e.Key, status, e.Result.Mode, e.Result.Iterations, e.Result.DurationMs)
	}
	return buf.Bytes()
}

// executionFailureMessage picks the scheduler-fatal error's message when
// one exists, falling back to the first aggregated per-node error.
func executionFailureMessage(result domain.ExecutionResult) string {
	if result.Error != nil {
		return result.Error.Message
	}
	if len(result.Errors) > 0 {
		return result.Errors[0].Message
	}
	return ""
}

// executionFailureKind mirrors executionFailureMessage for the error kind.
func executionFailureKind(result domain.ExecutionResult) cogerrors.Kind {
	if result.Error != nil {
		return result.Error.Kind
	}
	if len(result.Errors) > 0 {
		return result.Errors[0].Kind
	}
	return ""
}
