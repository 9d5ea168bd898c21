package diag_test

import (
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/diag"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

func TestBagLimitCountsDropped(t *testing.T) {
	bag := diag.NewBag(2)
	for range 4 {
		bag.Add(diag.New(diag.SevWarning, diag.EngRuleFault, source.Span{}, "x"))
	}
	if bag.Len() != 2 || bag.Dropped() != 2 {
		t.Fatalf("len=%d dropped=%d, want 2/2", bag.Len(), bag.Dropped())
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := diag.NewBag(0)
	late := source.Span{File: 0, Start: 20, End: 25}
	early := source.Span{File: 0, Start: 3, End: 4}
	bag.Add(diag.New(diag.SevInfo, diag.EngUnusedIgnore, late, "unused"))
	bag.Add(diag.New(diag.SevError, diag.PrsUnexpectedToken, early, "boom"))
	bag.Add(diag.New(diag.SevWarning, diag.EngTruncated, early, "budget"))
	bag.Add(diag.New(diag.SevInfo, diag.EngUnusedIgnore, late, "unused"))

	bag.Dedup()
	bag.Sort()

	items := bag.Items()
	if len(items) != 3 {
		t.Fatalf("got %d items after dedup, want 3", len(items))
	}
	if items[0].Code != diag.PrsUnexpectedToken || items[1].Code != diag.EngTruncated || items[2].Code != diag.EngUnusedIgnore {
		t.Fatalf("unexpected order: %v, %v, %v", items[0].Code, items[1].Code, items[2].Code)
	}
	if !bag.HasErrors() {
		t.Fatalf("HasErrors() = false, want true")
	}
}

func TestCodeIDRanges(t *testing.T) {
	tests := map[diag.Code]string{
		diag.LexUnknownChar:  "LEX1001",
		diag.PrsBadItem:      "PRS2005",
		diag.EngRuleFault:    "ENG3001",
		diag.IOLoadFileError: "IO4001",
		diag.CfgInvalidValue: "CFG5001",
		diag.UnknownCode:     "E0000",
	}
	for code, want := range tests {
		if got := code.ID(); got != want {
			t.Fatalf("%d.ID() = %q, want %q", code, got, want)
		}
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.rs", []byte("fn main() {\n  (\n}\n"))
	d := diag.New(diag.SevError, diag.PrsUnclosedDelim, source.Span{File: id, Start: 14, End: 15}, "unclosed '('")
	got := diag.FormatShort([]diag.Diagnostic{d}, fs)
	want := "a.rs:2:3: ERROR PRS2002 unclosed '('\n"
	if got != want {
		t.Fatalf("FormatShort() = %q, want %q", got, want)
	}
}
