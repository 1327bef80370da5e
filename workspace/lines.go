package workspace

import (
	"strconv"
	"strings"
)

// SplitLines splits content into lines. A trailing newline does not produce an
// empty final line, and a carriage return before each newline is dropped.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// NumberedLines prefixes every line with its 1-based number, as in "12| WIRE".
func NumberedLines(content string) string {
	lines := SplitLines(content)

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("| ")
		b.WriteString(line)
	}
	return b.String()
}
