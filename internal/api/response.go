package api

import (
	"encoding/json"
	"sort"

	"fintrack/internal/core"
)

// mutationResult is the raw body of an insert, update or delete.
type mutationResult map[string]json.RawMessage

// affectedRows reads {key: {affected_rows: n}}. Older deployments name the
// delete keys differently (delete_incomes), so when key is missing any
// top-level object carrying affected_rows is accepted. An unreadable body
// reports zero rows.
func (m mutationResult) affectedRows(key string) int {
	if n, ok := readAffected(m[key]); ok {
		return n
	}
	for _, k := range m.sortedKeys() {
		if n, ok := readAffected(m[k]); ok {
			return n
		}
	}
	return 0
}

// insertedID returns the top-level id, or the id of the first nested object
// (insert_income_one: {id}). A zero ID means the server omitted it.
func (m mutationResult) insertedID() core.ID {
	if id, ok := readID(m["id"]); ok {
		return id
	}
	for _, k := range m.sortedKeys() {
		var nested struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(m[k], &nested) != nil {
			continue
		}
		if id, ok := readID(nested.ID); ok {
			return id
		}
	}
	return ""
}

func (m mutationResult) sortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readAffected(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var body struct {
		AffectedRows *int `json:"affected_rows"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.AffectedRows == nil {
		return 0, false
	}
	return *body.AffectedRows, true
}

func readID(raw json.RawMessage) (core.ID, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var id core.ID
	if err := json.Unmarshal(raw, &id); err != nil || id.IsZero() {
		return "", false
	}
	return id, true
}
