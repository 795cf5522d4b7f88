// Package sqlguard validates generated SQL before it may touch the database.
// It is a lexical firewall: a fixed rule set over the raw SQL text, no parser.
// Every rule runs; a verdict is accepted only when no rule produced a reason
package sqlguard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rule ids carried in Verdict.Reasons. Stable identifiers, safe to return
// to clients; the offending SQL itself never travels with them
const (
	ReasonTooLong           = "too_long"
	ReasonNonSelect         = "non_select"
	ReasonDestructive       = "destructive"
	ReasonSystemAccess      = "system_access"
	ReasonInjection         = "injection"
	ReasonUnauthorizedTable = "unauthorized_table"
	ReasonLimitExceeded     = "limit_exceeded"
)

// Verdict is the validation outcome. Accepted is true exactly when Reasons
// is empty. NormalizedSQL carries the SQL to execute, with the mandatory
// LIMIT appended when the input had none
type Verdict struct {
	Accepted      bool     `json:"accepted"`
	Reasons       []string `json:"reasons,omitempty"`
	NormalizedSQL string   `json:"normalized_sql,omitempty"`
}

// Config bounds the validator
type Config struct {
	// Tables is the whitelist of base tables SQL may reference
	Tables []string
	// MaxBytes caps the SQL length, default 10 KiB
	MaxBytes int
	// MaxRows caps the mandatory LIMIT, default 100
	MaxRows int
}

// Validator applies the rule set. Construct once, use from any goroutine
type Validator struct {
	tables   map[string]struct{}
	maxBytes int
	maxRows  int
}

var (
	destructiveRe  = regexp.MustCompile(`(?i)\b(drop|delete|update|insert|truncate|alter|create|grant|revoke|copy)\b`)
	systemAccessRe = regexp.MustCompile(`(?i)(\b(pg_sleep|pg_read_file|lo_import|lo_export|current_user|session_user|information_schema|pg_catalog)\b|version\s*\(\s*\))`)
	commentVerbRe  = regexp.MustCompile(`(?i)(--|/\*)[^\n]*\b(drop|delete|update|insert|truncate|alter|create|grant|revoke|select)\b`)
	limitRe        = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	unionRe        = regexp.MustCompile(`(?i)\bunion\b(?:\s+all)?`)
	leadLineRe     = regexp.MustCompile(`^\s*--[^\n]*\n?`)
	leadBlockRe    = regexp.MustCompile(`(?s)^\s*/\*.*?\*/`)
)

// New constructs a Validator over the table whitelist
func New(cfg Config) *Validator {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 10
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 100
	}
	v := &Validator{
		tables:   make(map[string]struct{}, len(cfg.Tables)),
		maxBytes: cfg.MaxBytes,
		maxRows:  cfg.MaxRows,
	}
	for _, t := range cfg.Tables {
		v.tables[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return v
}

// Validate runs every rule against sql and returns the verdict.
// Reasons appear in rule order and each id at most once
func (v *Validator) Validate(sql string) Verdict {
	var reasons []string
	add := func(id string) {
		for _, r := range reasons {
			if r == id {
				return
			}
		}
		reasons = append(reasons, id)
	}

	// R1 length
	if len(sql) > v.maxBytes {
		add(ReasonTooLong)
	}

	// R2 must start with SELECT or WITH after comment strip
	if !startsSelect(sql) {
		add(ReasonNonSelect)
	}

	// R3 destructive verbs as whole tokens
	if destructiveRe.MatchString(sql) {
		add(ReasonDestructive)
	}

	// R4 system access identifiers
	if systemAccessRe.MatchString(sql) {
		add(ReasonSystemAccess)
	}

	// R5 lexical injection patterns
	if hasInjection(sql, v.tables) {
		add(ReasonInjection)
	}

	// R6 every referenced base table is whitelisted
	for _, tbl := range ExtractTables(sql) {
		if _, ok := v.tables[tbl]; !ok {
			add(ReasonUnauthorizedTable)
			break
		}
	}

	// R7 mandatory LIMIT
	normalized, limitOK := v.enforceLimit(sql)
	if !limitOK {
		add(ReasonLimitExceeded)
	}

	if len(reasons) > 0 {
		return Verdict{Accepted: false, Reasons: reasons}
	}
	return Verdict{Accepted: true, NormalizedSQL: normalized}
}

// startsSelect strips leading whitespace and comments (for this check only)
// and reports whether the first keyword is SELECT or WITH
func startsSelect(sql string) bool {
	s := sql
	for {
		trimmed := strings.TrimLeft(s, " \t\r\n")
		if rest := leadLineRe.ReplaceAllString(trimmed, ""); rest != trimmed {
			s = rest
			continue
		}
		if rest := leadBlockRe.ReplaceAllString(trimmed, ""); rest != trimmed {
			s = rest
			continue
		}
		s = trimmed
		break
	}
	up := strings.ToUpper(s)
	return strings.HasPrefix(up, "SELECT") || strings.HasPrefix(up, "WITH")
}

// hasInjection covers the lexical injection classes:
// odd unescaped single quotes, stacked statements, UNION against
// non-whitelisted tables, and comments hiding another verb
func hasInjection(sql string, tables map[string]struct{}) bool {
	if oddQuotes(sql) {
		return true
	}
	if stackedStatement(sql) {
		return true
	}
	if commentVerbRe.MatchString(sql) {
		return true
	}
	// every table referenced after a UNION must be whitelisted
	if loc := unionRe.FindStringIndex(sql); loc != nil {
		for _, tbl := range ExtractTables(sql[loc[1]:]) {
			if _, ok := tables[tbl]; !ok {
				return true
			}
		}
	}
	return false
}

// oddQuotes counts single quotes treating '' as an escaped literal quote
func oddQuotes(sql string) bool {
	count := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '\'' {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == '\'' {
			i++ // escaped pair
			continue
		}
		count++
	}
	return count%2 == 1
}

// stackedStatement reports a ';' followed by anything other than
// whitespace or a trailing comment
func stackedStatement(sql string) bool {
	for i := 0; i < len(sql); i++ {
		if sql[i] != ';' {
			continue
		}
		rest := strings.TrimLeft(sql[i+1:], " \t\r\n")
		if rest == "" {
			continue
		}
		if strings.HasPrefix(rest, "--") || strings.HasPrefix(rest, "/*") {
			continue
		}
		return true
	}
	return false
}

// enforceLimit applies R7. Returns the SQL to execute and whether the
// existing LIMIT (if any) is within bounds
func (v *Validator) enforceLimit(sql string) (string, bool) {
	m := limitRe.FindStringSubmatch(sql)
	if m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > v.maxRows {
			return sql, false
		}
		return sql, true
	}
	trimmed := strings.TrimRight(sql, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ";")
	return fmt.Sprintf("%s LIMIT %d", trimmed, v.maxRows), true
}
