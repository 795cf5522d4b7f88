// Package llm provides a thin OpenAI-compatible chat client. It is transport
// only: one attempt per call, errors mapped onto the pipeline taxonomy, and a
// circuit breaker that fast-fails while the upstream is misbehaving. Retries
// belong to the caller
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"

	"github.com/sony/gobreaker"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultModel       = "gpt-4"
	defaultUA          = "sibyl-llm"
	defaultTemperature = 0.1
	defaultMaxTokens   = 1000
	defaultBreakTrip   = 5
	defaultBreakCool   = 60 * time.Second
)

// Options configures the Client
type Options struct {
	// BaseURL hosts an OpenAI-compatible /chat/completions endpoint
	BaseURL string
	APIKey  string
	Model   string

	UserAgent   string
	Temperature float64
	MaxTokens   int

	// Timeout bounds one call; the request deadline still wins when tighter
	Timeout time.Duration

	// BreakerThreshold consecutive failures open the circuit for
	// BreakerCooldown
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// Client issues chat completions. Safe for concurrent use
type Client struct {
	http    *http.Client
	opts    Options
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
	now     func() time.Time
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.BreakerThreshold == 0 {
		o.BreakerThreshold = defaultBreakTrip
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = defaultBreakCool
	}

	log := logger.Named("llm")
	c := &Client{
		// no client-level timeout; per-call contexts bound each request so
		// streamed responses are not cut mid-body
		http: &http.Client{},
		opts: o,
		log:  *log,
		now:  time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: o.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// client cancellation says nothing about upstream health
			return err == nil || perr.IsCode(err, perr.ErrorCodeCanceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("llm breaker state change")
		},
	})
	return c
}

// Message is one chat turn in OpenAI wire shape
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Chat sends a system+user exchange and returns the assistant content.
// When onToken is non-nil the call streams and onToken sees each delta in
// order before Chat returns the concatenation
func (c *Client) Chat(ctx context.Context, system, user string, onToken func(string)) (string, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.chat(ctx, system, user, onToken)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return "", perr.LLMUnavailablef("llm circuit open")
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) chat(ctx context.Context, system, user string, onToken func(string)) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.opts.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Stream:      onToken != nil,
	})
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "llm marshal request")
	}

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "llm new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.mapTransport(ctx, cctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		c.log.Warn().Int("status", resp.StatusCode).Str("body", string(slurp)).Msg("llm non-200")
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return "", perr.TransientNetworkf("llm upstream %d", resp.StatusCode)
		default:
			return "", perr.LLMUnavailablef("llm rejected request (%d)", resp.StatusCode)
		}
	}

	var content string
	if onToken != nil {
		content, err = c.readStream(ctx, cctx, resp.Body, onToken)
	} else {
		content, err = c.readOnce(resp.Body)
	}
	if err != nil {
		return "", err
	}

	c.log.Debug().
		Dur("latency", c.now().Sub(start)).
		Bool("stream", onToken != nil).
		Int("content_len", len(content)).
		Msg("llm chat complete")
	return content, nil
}

func (c *Client) readOnce(body io.Reader) (string, error) {
	var cr chatResponse
	if err := json.NewDecoder(body).Decode(&cr); err != nil {
		return "", perr.LLMMalformedf("llm response decode: %v", err)
	}
	if len(cr.Choices) == 0 {
		return "", perr.LLMMalformedf("llm response has no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// readStream consumes SSE lines, forwarding deltas in order
func (c *Client) readStream(ctx, cctx context.Context, body io.Reader, onToken func(string)) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", perr.LLMMalformedf("llm stream chunk decode: %v", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			b.WriteString(delta)
			onToken(delta)
		}
	}
	if err := sc.Err(); err != nil {
		return "", c.mapTransport(ctx, cctx, err)
	}
	return b.String(), nil
}

// mapTransport classifies a transport error: the request deadline beats the
// call timeout beats plain network trouble
func (c *Client) mapTransport(ctx, cctx context.Context, err error) error {
	switch {
	case ctx.Err() == context.Canceled:
		return perr.Canceledf("llm call canceled")
	case ctx.Err() == context.DeadlineExceeded:
		return perr.Timeoutf("llm call aborted by request deadline")
	case cctx.Err() == context.DeadlineExceeded:
		return perr.LLMTimeoutf("llm call exceeded %s", c.opts.Timeout)
	default:
		return perr.TransientNetworkf("llm transport: %v", err)
	}
}
