package format

import "strings"

// StatementFormatter canonicalizes the code inside one embedded tag.
// It receives the statement text with any leading control keyword
// already stripped, the width budget for the line it will land on,
// and the stripped keyword (empty for plain statements). The result
// must be idempotent on its own output; multi-line results are
// indented by the caller. The formatter must treat its input as a
// free-standing statement: wrapping a keyword-only fragment into
// something parseable is the caller's job, not the collaborator's.
type StatementFormatter func(source string, maxWidth int, keyword string) (string, error)

// DefaultStatementFormatter trims each line and drops empty ones,
// leaving statement-internal layout to the author. It never fails.
func DefaultStatementFormatter(source string, maxWidth int, keyword string) (string, error) {
	lines := strings.Split(source, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}
