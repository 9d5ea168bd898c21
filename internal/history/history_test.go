package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/history"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

func open(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func document(findings ...report.Record) *report.Document {
	doc := &report.Document{
		Schema:   report.SchemaVersion,
		Tool:     "ubs",
		Verdicts: map[string]int{"clean": 1, "flagged": 0, "defective": 0},
		Units:    []report.Unit{{Path: "a.rs"}},
		Findings: findings,
	}
	for _, f := range findings {
		switch f.Severity {
		case rules.SeverityCritical:
			doc.Totals.Critical++
		case rules.SeverityWarning:
			doc.Totals.Warning++
		default:
			doc.Totals.Info++
		}
	}
	return doc
}

func record(rule string, sev rules.Severity, line uint32) report.Record {
	rec := report.Record{
		Rule:     rule,
		Severity: sev,
		Location: report.Location{File: "a.rs", Line: line, Col: 5, StartByte: line * 10},
		Message:  rule + " message",
	}
	rec.Key = report.FindingKey(rec)
	return rec
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := open(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.Record(ctx, document(), "/src", "fp1", t0)
	if err != nil {
		t.Fatal(err)
	}
	doc := document(record("unwrap-panic", rules.SeverityWarning, 3), record("unsafe-reinterpret", rules.SeverityCritical, 1))
	doc.Verdicts = map[string]int{"clean": 0, "flagged": 0, "defective": 1}
	second, err := store.Record(ctx, doc, "/src", "fp1", t0.Add(1500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("want 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("want newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
	if want := (engine.Totals{Critical: 1, Warning: 1}); runs[0].Totals != want {
		t.Fatalf("totals: want %+v, got %+v", want, runs[0].Totals)
	}
	if runs[0].Verdicts["defective"] != 1 || runs[1].Verdicts["clean"] != 1 {
		t.Fatalf("verdicts: got %v and %v", runs[0].Verdicts, runs[1].Verdicts)
	}
	if !runs[0].StartedAt.Equal(t0.Add(1500 * time.Millisecond)) {
		t.Fatalf("started_at: got %s", runs[0].StartedAt)
	}

	limited, err := store.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("limit: got %d runs", len(limited))
	}

	got, err := store.Findings(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 findings, got %d", len(got))
	}
	if got[0].Rule != "unsafe-reinterpret" || got[0].Severity != "critical" || got[0].Line != 1 {
		t.Fatalf("first finding: %+v", got[0])
	}
}

func TestGetMissing(t *testing.T) {
	store := open(t)
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	store := open(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var last *history.Run
	for i := range 4 {
		run, err := store.Record(ctx, document(record("unwrap-panic", rules.SeverityWarning, 2)), "/src", "fp", t0.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		last = run
	}
	n, err := store.Prune(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("want 3 pruned, got %d", n)
	}
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != last.ID {
		t.Fatalf("want only the newest run left, got %d", len(runs))
	}
	if _, err := store.Get(ctx, last.ID); err != nil {
		t.Fatal(err)
	}
}
