package agent

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tailored-agentic-units/spicy/core/response"
	"github.com/tailored-agentic-units/spicy/workspace"
)

// ApplyEdits applies line edits to content and returns the new content and
// the number of edits applied. Edits run in descending start order so earlier
// line numbers stay valid; ranges outside the content or inverted are
// skipped. A trailing newline on content is preserved.
func ApplyEdits(content string, edits []response.Edit) (string, int) {
	lines := workspace.SplitLines(content)

	ops := slices.Clone(edits)
	slices.SortStableFunc(ops, func(a, b response.Edit) int {
		return cmp.Compare(b.Start, a.Start)
	})

	applied := 0
	for _, e := range ops {
		if e.Start < 1 || e.End < 1 || e.Start > len(lines) || e.End > len(lines) || e.Start > e.End {
			continue
		}

		var replacement []string
		if e.Replacement != "" {
			replacement = workspace.SplitLines(e.Replacement)
		}
		lines = slices.Replace(lines, e.Start-1, e.End, replacement...)
		applied++
	}

	result := strings.Join(lines, "\n")
	if strings.HasSuffix(content, "\n") && !strings.HasSuffix(result, "\n") {
		result += "\n"
	}
	return result, applied
}
