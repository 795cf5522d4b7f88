package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	dom "sibyl/internal/services/pipeline/domain"
)

// cacheKey derives the result cache key for a request:
// digest(normalized_query || 0x1f || canonical(context) || 0x1f ||
// canonical(options)) rendered as 32 lowercase hex characters. Options
// cover everything that changes the stored payload
func cacheKey(normQuery string, reqCtx map[string]any, strat dom.Strategy, limit int, highlightOn bool) string {
	opts := map[string]any{
		"strategy":  string(strat),
		"limit":     limit,
		"highlight": highlightOn,
	}

	var b bytes.Buffer
	b.WriteString(normQuery)
	b.WriteByte(0x1f)
	b.Write(canonicalJSON(reqCtx))
	b.WriteByte(0x1f)
	b.Write(canonicalJSON(opts))

	sum := sha256.Sum256(b.Bytes())
	return hex.EncodeToString(sum[:16])
}

// canonicalJSON renders a map with lexicographically sorted keys, which
// encoding/json guarantees for map types
func canonicalJSON(m map[string]any) []byte {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}
