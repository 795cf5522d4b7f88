package service

import (
	"context"
	"encoding/json"
	"strings"

	"sibyl/internal/core/intent"
	"sibyl/internal/core/promptpack"
	"sibyl/internal/core/sqlgen"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
)

// defaultLLMConfidence applies when the model omits a confidence score
const defaultLLMConfidence = 0.7

// ChatPort is the LLM transport seam. One call, one attempt; retries and
// fallbacks belong to the scheduler
type ChatPort interface {
	Chat(ctx context.Context, system, user string, onToken func(string)) (string, error)
}

// llmGenerator renders the prompt, calls the model, and parses the reply
// into an artifact
type llmGenerator struct {
	chat ChatPort
	pack *promptpack.Pack
	log  *logger.Logger
}

func newLLMGenerator(chat ChatPort, pack *promptpack.Pack) *llmGenerator {
	return &llmGenerator{
		chat: chat,
		pack: pack,
		log:  logger.Named("llmgen"),
	}
}

// Generate produces one artifact from the model. onToken streams raw
// response deltas when non-nil
func (g *llmGenerator) Generate(ctx context.Context, query string, in intent.Intent, onToken func(string)) (sqlgen.Artifact, error) {
	content, err := g.chat.Chat(ctx, g.pack.System(), g.pack.User(query, in, nil), onToken)
	if err != nil {
		return sqlgen.Artifact{}, err
	}

	art, err := parseArtifact(content)
	if err != nil {
		g.log.Warn().Err(err).Int("content_len", len(content)).Msg("llm reply rejected")
		return sqlgen.Artifact{}, err
	}
	return art, nil
}

// llmPayload is the JSON shape the prompt demands from the model
type llmPayload struct {
	SQL         string         `json:"sql"`
	Parameters  map[string]any `json:"parameters"`
	Explanation string         `json:"explanation"`
	Confidence  *float64       `json:"confidence"`
}

// parseArtifact decodes the model reply. Malformed JSON gets one repair
// pass that extracts the first balanced object, tolerating code fences
// and prose around the payload
func parseArtifact(content string) (sqlgen.Artifact, error) {
	raw := strings.TrimSpace(content)

	var p llmPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		obj, ok := firstBalancedObject(raw)
		if !ok {
			return sqlgen.Artifact{}, perr.LLMMalformedf("llm reply is not JSON: %v", err)
		}
		if err := json.Unmarshal([]byte(obj), &p); err != nil {
			return sqlgen.Artifact{}, perr.LLMMalformedf("llm reply repair failed: %v", err)
		}
	}

	sql := strings.TrimSpace(p.SQL)
	if sql == "" {
		return sqlgen.Artifact{}, perr.LLMMalformedf("llm reply has no sql")
	}
	params := p.Parameters
	if params == nil {
		params = map[string]any{}
	}
	if !sqlgen.ParamsMatch(sql, params) {
		return sqlgen.Artifact{}, perr.LLMMalformedf("llm parameters do not match sql placeholders")
	}

	conf := defaultLLMConfidence
	if p.Confidence != nil {
		conf = *p.Confidence
		if conf > 1 {
			conf = 1
		}
		if conf <= 0 {
			conf = defaultLLMConfidence
		}
	}

	return sqlgen.Artifact{
		SQL:         sql,
		Parameters:  params,
		Explanation: p.Explanation,
		Confidence:  conf,
		Source:      sqlgen.SourceLLM,
	}, nil
}

// firstBalancedObject returns the first brace-balanced {...} block,
// honoring string literals and escapes
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
