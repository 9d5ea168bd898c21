package ui

import (
	"strings"
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/driver"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/rules"
)

func TestProgressModelTracksEvents(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("scanning", events).(*progressModel)

	m.Update(eventMsg(driver.Event{Kind: driver.EventDiscovered, Total: 2}))
	flagged := &engine.Result{Path: "src/a.rs", Findings: []rules.Finding{{RuleID: "unwrap-panic", Severity: rules.SeverityWarning}}}
	m.Update(eventMsg(driver.Event{Kind: driver.EventUnitDone, Total: 2, Done: 1, Path: "src/a.rs", Result: flagged}))
	m.Update(eventMsg(driver.Event{Kind: driver.EventUnitDone, Total: 2, Done: 2, Path: "src/b.rs", Result: &engine.Result{Path: "src/b.rs", Unparseable: true}, Cached: true}))

	if m.total != 2 || m.done != 2 || m.cached != 1 {
		t.Fatalf("counters: total=%d done=%d cached=%d", m.total, m.done, m.cached)
	}
	if m.totals != (engine.Totals{Warning: 1}) {
		t.Fatalf("totals: got %+v", m.totals)
	}
	view := m.View()
	for _, want := range []string{"scanning (2/2)", "flagged", "unparseable", "src/a.rs", "warning 1", "cached 1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelKeepsRecentRows(t *testing.T) {
	m := NewProgressModel("scanning", nil).(*progressModel)
	for i := range maxRows + 5 {
		m.applyEvent(driver.Event{Kind: driver.EventUnitDone, Done: i + 1, Path: "f.rs", Result: &engine.Result{}})
	}
	if len(m.items) != maxRows {
		t.Fatalf("want %d rows, got %d", maxRows, len(m.items))
	}
}

func TestChannelObserver(t *testing.T) {
	ch := make(chan driver.Event, 1)
	Channel(ch)(driver.Event{Kind: driver.EventFinished, Done: 3})
	if ev := <-ch; ev.Kind != driver.EventFinished || ev.Done != 3 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.rs", 20, "short.rs"},
		{"a/very/long/path/to/file.rs", 10, "a/very/..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
