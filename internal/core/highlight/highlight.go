// Package highlight formats query results for display: it wraps query-term
// matches in marker pairs, escaping HTML first so angle brackets in row data
// stay inert, and computes pagination windows over row slices
package highlight

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// Default marker pair. Guillemets survive JSON and never collide with the
// escaped HTML they wrap
const (
	DefaultOpen  = "«" // «
	DefaultClose = "»" // »
)

// Options control marking behavior
type Options struct {
	// Open and Close delimit each match; defaults are guillemets
	Open  string
	Close string
	// CaseSensitive matches terms exactly; default folds case
	CaseSensitive bool
	// MaxPerField caps marks per string column, default 10
	MaxPerField int
}

func (o Options) withDefaults() Options {
	if o.Open == "" {
		o.Open = DefaultOpen
	}
	if o.Close == "" {
		o.Close = DefaultClose
	}
	if o.MaxPerField <= 0 {
		o.MaxPerField = 10
	}
	return o
}

var quotedRe = regexp.MustCompile(`"([^"]+)"`)

// Terms extracts the highlightable tokens from a query. Quoted phrases are
// kept whole; the remainder splits on whitespace with CJK runs separated
// from Latin runs. Single Latin letters and digits are dropped, single CJK
// runes are kept. Order is first occurrence, duplicates removed
func Terms(query string) []string {
	var terms []string

	rest := quotedRe.ReplaceAllStringFunc(query, func(m string) string {
		terms = append(terms, strings.TrimSpace(m[1:len(m)-1]))
		return " "
	})

	for _, tok := range strings.Fields(rest) {
		terms = append(terms, splitScripts(tok)...)
	}

	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len([]rune(t)) < 2 && !isCJK([]rune(t)[0]) {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// splitScripts breaks a token at CJK/non-CJK boundaries so mixed tokens
// like 홍길동님account yield both scripts as separate terms
func splitScripts(tok string) []string {
	var parts []string
	var cur []rune
	curCJK := false
	for i, r := range []rune(tok) {
		cjk := isCJK(r)
		if i > 0 && cjk != curCJK {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
		curCJK = cjk
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}

// Rows marks query-term matches in every string column of every row.
// Non-string values pass through untouched; rows are copied, never mutated
func Rows(rows []map[string]any, query string, opts Options) []map[string]any {
	terms := Terms(query)
	if len(rows) == 0 || len(terms) == 0 {
		return rows
	}
	opts = opts.withDefaults()

	res := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		res = append(res, termRe(t, opts.CaseSensitive))
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		marked := make(map[string]any, len(row))
		for col, val := range row {
			s, ok := val.(string)
			if !ok {
				marked[col] = val
				continue
			}
			marked[col] = markField(s, res, opts)
		}
		out[i] = marked
	}
	return out
}

// termRe compiles a literal-term matcher over HTML-escaped text
func termRe(term string, caseSensitive bool) *regexp.Regexp {
	pat := regexp.QuoteMeta(html.EscapeString(term))
	if !caseSensitive {
		pat = "(?i)" + pat
	}
	return regexp.MustCompile(pat)
}

// markField escapes the value then wraps matches, stopping at the per-field
// cap. Escape-then-match keeps marker placement aligned with what the
// client renders
func markField(s string, res []*regexp.Regexp, opts Options) string {
	escaped := html.EscapeString(s)
	marks := 0
	for _, re := range res {
		if marks >= opts.MaxPerField {
			break
		}
		escaped = re.ReplaceAllStringFunc(escaped, func(m string) string {
			if marks >= opts.MaxPerField {
				return m
			}
			marks++
			return opts.Open + m + opts.Close
		})
	}
	return escaped
}

// PageInfo describes one pagination window
type PageInfo struct {
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// Paginate slices rows into the window at offset/limit. The page is
// offset/limit+1 clamped into [1, pages] and the offset recomputed from the
// clamped page, so out-of-range requests land on a real page. total is the
// full result size, which may exceed len(rows) when rows were truncated
// upstream
func Paginate(rows []map[string]any, offset, limit, total int) ([]map[string]any, PageInfo) {
	if limit <= 0 {
		limit = len(rows)
		if limit == 0 {
			limit = 1
		}
	}
	if offset < 0 {
		offset = 0
	}
	if total < len(rows) {
		total = len(rows)
	}

	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	page := offset/limit + 1
	if page > pages {
		page = pages
	}
	offset = (page - 1) * limit

	end := offset + limit
	if offset > len(rows) {
		offset = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	window := rows[offset:end]

	return window, PageInfo{
		Page:    page,
		Pages:   pages,
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
