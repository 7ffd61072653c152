package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Error codes carried next to the message, in the style of the hosted API.
const (
	codeAccessDenied       = "access-denied"
	codeValidationFailed   = "validation-failed"
	codeConstraintViolated = "constraint-violation"
	codeRateLimited        = "rate-limited"
	codeUnexpected         = "unexpected"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Message: message, Code: code})
}

type affected struct {
	AffectedRows int64 `json:"affected_rows"`
}

// mutationBody renders {key: {affected_rows: n}}.
func mutationBody(key string, n int64) map[string]affected {
	return map[string]affected{key: {AffectedRows: n}}
}

type insertedBody struct {
	ID core.ID `json:"id"`
}

// Amounts leave the server as JSON numbers.
func amountJSON(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func nullAmountJSON(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}
	n := amountJSON(d.Decimal)
	return &n
}

type incomeRow struct {
	ID          core.ID     `json:"id"`
	Amount      json.Number `json:"income_amt"`
	CreatedDate string      `json:"created_date"`
}

type expenseRow struct {
	ID          core.ID          `json:"id"`
	Amount      json.Number      `json:"expense_amt"`
	CreatedDate string           `json:"created_date"`
	Category    core.CategoryRef `json:"category"`
}

func incomeRows(in []core.Income) []incomeRow {
	out := make([]incomeRow, 0, len(in))
	for _, r := range in {
		out = append(out, incomeRow{ID: r.ID, Amount: amountJSON(r.Amount), CreatedDate: r.CreatedDate})
	}
	return out
}

func expenseRows(in []core.Expense) []expenseRow {
	out := make([]expenseRow, 0, len(in))
	for _, r := range in {
		out = append(out, expenseRow{ID: r.ID, Amount: amountJSON(r.Amount), CreatedDate: r.CreatedDate, Category: r.Category})
	}
	return out
}

type sumBody struct {
	Aggregate struct {
		Sum map[string]*json.Number `json:"sum"`
	} `json:"aggregate"`
}

// aggregateBody renders {key: {aggregate: {sum: {column: n|null}}}}.
func aggregateBody(key, column string, total decimal.NullDecimal) map[string]sumBody {
	var b sumBody
	b.Aggregate.Sum = map[string]*json.Number{column: nullAmountJSON(total)}
	return map[string]sumBody{key: b}
}
