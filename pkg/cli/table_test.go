package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME", "STATUS")
	tbl.Row("zwe-r1", "completed")
	tbl.Row("a-very-long-device-name", "failed")
	tbl.Flush()

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header+divider+2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("divider = %q", lines[1])
	}
	// Columns aligned: STATUS starts at the same offset in every row
	idx := strings.Index(lines[0], "STATUS")
	if !strings.HasPrefix(lines[2][idx:], "completed") {
		t.Errorf("row misaligned: %q", lines[2])
	}
}

func TestTable_EmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "A", "B")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTable_ANSIWidths(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME", "STATUS")
	tbl.Row("r1", Green("up"))
	tbl.Row("r2", "down")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Color codes must not distort the computed column widths.
	col := strings.Index(lines[0], "STATUS")
	if got := strings.Index(ansiRe.ReplaceAllString(lines[2], ""), "up"); got != col {
		t.Errorf("ANSI-colored cell broke alignment: %q vs %q", lines[2], lines[3])
	}
}

func TestStatusColor(t *testing.T) {
	if !strings.Contains(StatusColor("completed"), "completed") {
		t.Error("StatusColor lost the label")
	}
	if StatusColor("weird") != "weird" {
		t.Errorf("unknown status should pass through, got %q", StatusColor("weird"))
	}
}
