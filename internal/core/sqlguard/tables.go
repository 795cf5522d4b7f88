package sqlguard

import "regexp"

var (
	// fromJoinRe captures the identifier after FROM or JOIN. Subqueries start
	// with '(' and are skipped by the identifier pattern; their inner FROM is
	// still scanned by the same pass over the full text
	fromJoinRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-z_][a-z0-9_]*)`)
	// cteRe captures names bound by WITH clauses, `name AS (`
	cteRe = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)\s+as\s*\(`)
)

// ExtractTables returns the base tables referenced by FROM and JOIN clauses,
// lowercased and deduplicated in first-seen order. Names bound as CTEs are
// not base tables and are excluded. It is a lexical scan and intentionally
// ignores aliases, schemas and quoted identifiers; anything it cannot
// recognize fails the whitelist downstream rather than passing it
func ExtractTables(sql string) []string {
	matches := fromJoinRe.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		return nil
	}
	ctes := make(map[string]struct{})
	for _, m := range cteRe.FindAllStringSubmatch(sql, -1) {
		ctes[toLowerASCII(m[1])] = struct{}{}
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		tbl := toLowerASCII(m[1])
		if _, ok := ctes[tbl]; ok {
			continue
		}
		if _, ok := seen[tbl]; ok {
			continue
		}
		seen[tbl] = struct{}{}
		out = append(out, tbl)
	}
	return out
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
