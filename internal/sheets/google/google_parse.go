package google

import (
	"fmt"
	"strings"
	"time"

	ports "fintrack/internal/sheets"
)

// Header is the first row of the ledger sheet.
var Header = []string{"Timestamp", "Op", "Kind", "Record", "User", "Amount", "Category", "Date"}

func entryRow(e ports.Entry) []any {
	return []any{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Op,
		e.Kind,
		e.RecordID.String(),
		e.UserID.String(),
		e.Amount,
		e.CategoryName,
		e.CreatedDate,
	}
}

func headerRow() []any {
	out := make([]any, len(Header))
	for i, h := range Header {
		out[i] = h
	}
	return out
}

// columnRange returns "<sheet>!A:<last>" for the ledger width.
func columnRange(sheet string, row int) string {
	last := string(rune('A' + len(Header) - 1))
	if row > 0 {
		return fmt.Sprintf("'%s'!A%d:%s%d", sheet, row, last, row)
	}
	return fmt.Sprintf("'%s'!A:%s", sheet, last)
}

// hasHeader reports whether the first row already carries the ledger
// header, ignoring case and surrounding spaces.
func hasHeader(values [][]any) bool {
	if len(values) == 0 {
		return false
	}
	row := toStrings(values[0])
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(safeGet(row, i)), h) {
			return false
		}
	}
	return true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
