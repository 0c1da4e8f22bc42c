package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"tamv/internal/logger"

	"github.com/avast/retry-go/v4"
)

const (
	defaultMaxRetryTimes = 3
	defaultRetryInterval = 500 * time.Millisecond
	defaultDialTimeout   = 10 * time.Second
	defaultHeaderTimeout = 60 * time.Second
	// пауза между фреймами, после которой поток считается зависшим
	defaultIdleTimeout = 30 * time.Second
)

// ErrPaymentRequired means the provider account is out of credit. It is
// never retried.
var ErrPaymentRequired = errors.New("assistant: payment required")

// ErrNotConfigured is returned when no provider URL is set.
var ErrNotConfigured = errors.New("assistant: not configured")

// ErrStreamStalled means the provider sent nothing for longer than the idle
// timeout. The answer may be of any total length.
var ErrStreamStalled = errors.New("assistant: stream stalled")

// RateLimitedError is a 429 from the provider.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("assistant: rate limited, retry after %s", e.RetryAfter)
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assistant: provider returned %d: %s", e.Code, e.Body)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	URL          string
	APIKey       string
	Model        string
	SystemPrompt string
}

// Client streams chat completions from an OpenAI-compatible endpoint.
type Client struct {
	httpClient  *http.Client
	cfg         Config
	attempts    uint
	delay       time.Duration
	idleTimeout time.Duration
}

// NewClient builds a client without an overall request timeout: only
// connection setup, response headers and the gap between frames are bounded.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   defaultDialTimeout,
		ResponseHeaderTimeout: defaultHeaderTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          16,
	}
	return &Client{
		httpClient:  &http.Client{Transport: transport},
		cfg:         cfg,
		attempts:    defaultMaxRetryTimes,
		delay:       defaultRetryInterval,
		idleTimeout: defaultIdleTimeout,
	}
}

// SetIdleTimeout overrides how long the stream may stay silent.
func (c *Client) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultIdleTimeout
	}
	c.idleTimeout = d
}

// SetRetry overrides the retry budget. attempts below 1 mean a single try.
func (c *Client) SetRetry(attempts uint, delay time.Duration) {
	if attempts == 0 {
		attempts = 1
	}
	c.attempts = attempts
	c.delay = delay
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream sends messages with the system prompt prepended and calls onDelta
// for every content fragment. Failures are retried only until the first
// fragment has been delivered.
func (c *Client) Stream(ctx context.Context, messages []Message, onDelta func(string) error) error {
	if c.cfg.URL == "" {
		return ErrNotConfigured
	}
	body := chatRequest{Model: c.cfg.Model, Stream: true}
	if c.cfg.SystemPrompt != "" {
		body.Messages = append(body.Messages, Message{Role: "system", Content: c.cfg.SystemPrompt})
	}
	body.Messages = append(body.Messages, messages...)
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	started := false
	call := func() error {
		return c.stream(ctx, payload, func(d string) error {
			started = true
			return onDelta(d)
		})
	}

	return retry.Do(call,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			var rl *RateLimitedError
			if errors.As(err, &rl) && rl.RetryAfter > 0 {
				return rl.RetryAfter
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !started && retryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.WithContext(ctx).Debug("retrying assistant request",
				"attempt", n+1, "max_attempts", c.attempts, "error", err)
		}),
	)
}

func retryable(err error) bool {
	if errors.Is(err, ErrPaymentRequired) || errors.Is(err, context.Canceled) {
		return false
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	// transport errors
	return true
}

func (c *Client) stream(parent context.Context, payload []byte, onDelta func(string) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrPaymentRequired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var stalled atomic.Bool
	idle := time.AfterFunc(c.idleTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer idle.Stop()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		idle.Reset(c.idleTimeout)
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}
		var ch chunk
		if err := json.Unmarshal([]byte(data), &ch); err != nil {
			// неполный или служебный фрейм
			continue
		}
		for _, choice := range ch.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return retry.Unrecoverable(err)
			}
		}
	}
	if stalled.Load() {
		return ErrStreamStalled
	}
	return scanner.Err()
}

// parseRetryAfter понимает секунды и HTTP-дату
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
