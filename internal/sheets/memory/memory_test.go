package memory

import (
	"context"
	"testing"

	ports "fintrack/internal/sheets"
)

func TestLedgerAppendAndEntries(t *testing.T) {
	l := New()
	ctx := context.Background()

	ref, err := l.AppendEntry(ctx, ports.Entry{Op: "created", Kind: "income", RecordID: "1"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, _ = l.AppendEntry(ctx, ports.Entry{Op: "deleted", Kind: "income", RecordID: "1"})
	if ref != "mem:2" {
		t.Fatalf("unexpected ref %q", ref)
	}

	got, _ := l.Entries(ctx)
	if len(got) != 2 || got[1].Op != "deleted" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	got[0].Op = "mutated"
	again, _ := l.Entries(ctx)
	if again[0].Op != "created" {
		t.Error("Entries must return a copy")
	}
}
