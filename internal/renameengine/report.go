package renameengine

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/codalotl/jsrenamer/internal/jsast"
	"github.com/yuin/goldmark"
)

// writeReport renders records as a Markdown table (spec_full §10's
// supplemented "rename report" feature) and validates it round-trips to
// well-formed HTML via goldmark before writing — a sanity check, not a
// rendering step, since Markdown text is the actual deliverable.
func writeReport(w io.Writer, records []RenameRecord) error {
	var md strings.Builder
	md.WriteString("# Rename Report\n\n")
	if len(records) == 0 {
		md.WriteString("No identifiers were renamed.\n")
	} else {
		md.WriteString("| Original name | New name | Scope |\n")
		md.WriteString("| --- | --- | --- |\n")
		for _, r := range records {
			md.WriteString(fmt.Sprintf("| %s | %s | %s |\n", escapeCell(r.OldName), escapeCell(r.NewName), scopeLabel(r.Scope)))
		}
	}

	rendered := md.String()

	var htmlOut bytes.Buffer
	if err := goldmark.Convert([]byte(rendered), &htmlOut); err != nil {
		return fmt.Errorf("renameengine: rename report failed markdown validation: %w", err)
	}

	_, err := io.WriteString(w, rendered)
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func scopeLabel(s *jsast.Scope) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("offset %d-%d", s.Start, s.End)
}
