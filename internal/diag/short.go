package diag

import (
	"fmt"
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/source"
)

// FormatShort renders diagnostics one per line as
// "path:line:col: SEVERITY CODE message", in Bag order.
func FormatShort(diags []Diagnostic, fs *source.FileSet) string {
	if len(diags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range diags {
		path := "<unknown>"
		var pos source.LineCol
		if fs != nil && int(d.Primary.File) < fs.Len() {
			f := fs.Get(d.Primary.File)
			path = fs.DisplayPath(f)
			pos = f.Position(d.Primary.Start)
		}
		fmt.Fprintf(&b, "%s:%d:%d: %s %s %s\n", path, pos.Line, pos.Col, d.Severity, d.Code.ID(), d.Message)
	}
	return b.String()
}
