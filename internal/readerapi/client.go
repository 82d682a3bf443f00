package readerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/resilience"
)

// Client talks to the document reader service over HTTP. The synthesis
// path is guarded by a circuit breaker so a dead TTS backend degrades to
// silent narration instead of stalling every fragment on a timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ttsBreaker *resilience.CircuitBreaker
	logger     zerolog.Logger
}

// NewClient creates a reader service client rooted at baseURL
// (e.g. "http://localhost:8000/api").
func NewClient(baseURL string, ttsBreaker *resilience.CircuitBreaker) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		ttsBreaker: ttsBreaker,
		logger:     observability.ComponentLogger("readerapi"),
	}
}

// Command submits a free-text command and returns the structured action reply
func (c *Client) Command(ctx context.Context, text string) (*CommandReply, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command request: %w", err)
	}

	resp, err := c.post(ctx, "/command", body)
	if err != nil {
		observability.RecordError("transport", "readerapi")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.RecordError("transport", "readerapi")
		return nil, fmt.Errorf("command endpoint returned status %d", resp.StatusCode)
	}

	var reply CommandReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode command reply: %w", err)
	}

	c.logger.Debug().
		Str("action", reply.Action).
		Msg("Command reply received")

	return &reply, nil
}

// Ask submits a question with bounded history and returns the chunked
// plain-text answer stream. The caller owns the returned body and must
// close it; cancelling ctx aborts the stream mid-read.
func (c *Client) Ask(ctx context.Context, question string, history []Turn) (io.ReadCloser, error) {
	payload := struct {
		Question string `json:"question"`
		History  []Turn `json:"history"`
	}{Question: question, History: history}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ask request: %w", err)
	}

	resp, err := c.post(ctx, "/ask", body)
	if err != nil {
		observability.RecordError("transport", "readerapi")
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		observability.RecordError("transport", "readerapi")
		return nil, fmt.Errorf("ask endpoint returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Synthesize converts text to a binary audio payload via the reader
// service's TTS endpoint.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var audio []byte

	err := c.ttsBreaker.Call(func() error {
		body, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return fmt.Errorf("failed to marshal tts request: %w", err)
		}

		resp, err := c.post(ctx, "/tts", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("tts endpoint returned status %d", resp.StatusCode)
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read tts audio: %w", err)
		}
		return nil
	})

	if err != nil {
		observability.RecordError("synthesis", "readerapi")
		observability.IncrementCircuitBreakerFailures("tts")
		return nil, err
	}

	return audio, nil
}

// Status polls the reader backend's readiness
func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordError("transport", "readerapi")
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode status reply: %w", err)
	}

	return &st, nil
}

// Ping reports whether the reader service answers at all. Used by the
// readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := c.Status(ctx)
	return err
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return resp, nil
}
