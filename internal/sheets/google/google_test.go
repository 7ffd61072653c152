package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "fintrack/internal/sheets"
)

type fakeSheets struct {
	mu       sync.Mutex
	header   [][]any
	appended [][]any
	updates  int
	paths    []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.header})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.header = vr.Values
		f.updates++
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRows: 1})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "Ledger!A2:H2"},
		})
	default:
		http.Error(w, "unexpected", http.StatusNotFound)
	}
}

func newTestLedger(t *testing.T, fake *fakeSheets) *Ledger {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-id", "", nil)
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"}, nil)
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("expected missing spreadsheet id error, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/sa.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestAppendEntry_NilService(t *testing.T) {
	l := &Ledger{}
	if _, err := l.AppendEntry(context.Background(), ports.Entry{}); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestAppendEntry(t *testing.T) {
	fake := &fakeSheets{}
	l := newTestLedger(t, fake)

	ref, err := l.AppendEntry(context.Background(), ports.Entry{
		Timestamp:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Op:           "created",
		Kind:         "expense",
		RecordID:     "42",
		UserID:       "7",
		Amount:       "12.50",
		CategoryName: "Food",
		CreatedDate:  "2024-05-01",
	})
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if ref != "Ledger!A2:H2" {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.appended))
	}
	row := toStrings(fake.appended[0])
	want := []string{"2024-05-01T10:00:00Z", "created", "expense", "42", "7", "12.50", "Food", "2024-05-01"}
	for i := range want {
		if safeGet(row, i) != want[i] {
			t.Errorf("column %d = %q, want %q", i, safeGet(row, i), want[i])
		}
	}
	if !strings.Contains(fake.paths[0], "/v4/spreadsheets/sheet-id/values/") {
		t.Errorf("unexpected path %s", fake.paths[0])
	}
}

func TestEnsureHeader(t *testing.T) {
	fake := &fakeSheets{}
	l := newTestLedger(t, fake)
	ctx := context.Background()

	if err := l.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if fake.updates != 1 {
		t.Fatalf("updates = %d, want 1", fake.updates)
	}

	if err := l.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader again: %v", err)
	}
	if fake.updates != 1 {
		t.Errorf("header rewritten although present")
	}
}
