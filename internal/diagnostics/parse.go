package diagnostics

import (
	"strconv"
	"strings"

	"github.com/notework/collab/internal/domain"
)

// ParseCompilerOutput extracts diagnostics from typst's stderr. The compiler
// prints a message line ("error: ..." or "warning: ...") followed by a
// source box whose first rule line points at file:line:col, e.g.
//
//	error: unknown variable: foo
//	  ┌─ content/1/2.typ:14:7
func ParseCompilerOutput(stderr string) []domain.Diagnostic {
	var diags []domain.Diagnostic
	var current *domain.Diagnostic

	for _, line := range strings.Split(stderr, "\n") {
		stripped := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(stripped, "error:"):
			current = &domain.Diagnostic{
				Message:  strings.TrimSpace(strings.TrimPrefix(stripped, "error:")),
				Severity: "error",
			}
		case strings.HasPrefix(stripped, "warning:"):
			current = &domain.Diagnostic{
				Message:  strings.TrimSpace(strings.TrimPrefix(stripped, "warning:")),
				Severity: "warning",
			}
		case current != nil && (strings.Contains(stripped, "┌") || strings.Contains(stripped, "├")):
			idx := strings.Index(stripped, "─")
			if idx < 0 {
				continue
			}
			location := strings.TrimSpace(stripped[idx+len("─"):])
			if d, ok := parseLocation(location); ok {
				d.Message = current.Message
				d.Severity = current.Severity
				diags = append(diags, d)
				current = nil
			}
		}
	}
	return diags
}

// parseLocation splits "path:line:col". The path itself may contain colons,
// so the last two segments are taken as the position.
func parseLocation(location string) (domain.Diagnostic, bool) {
	parts := strings.Split(location, ":")
	if len(parts) < 3 {
		return domain.Diagnostic{}, false
	}
	line, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-2]))
	if err != nil {
		return domain.Diagnostic{}, false
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return domain.Diagnostic{}, false
	}
	return domain.Diagnostic{
		File: strings.TrimSpace(strings.Join(parts[:len(parts)-2], ":")),
		Line: line,
		Col:  col,
	}, true
}
