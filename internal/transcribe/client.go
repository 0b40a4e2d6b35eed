// SPDX-License-Identifier: MIT

// Package transcribe sends recorded dictations to the remote speech-to-text
// service and returns the recognized text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"dentvoice/internal/config"
	applog "dentvoice/internal/log"
)

// TranscribePath is the service endpoint, relative to the base URL.
const TranscribePath = "/api/voice/transcribe"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1 << 20

// Transcriber turns a WAV file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// ErrorType categorizes client errors.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeServer
	ErrTypeInvalidResponse
)

// ClientError is returned for every failed transcription.
type ClientError struct {
	Type       ErrorType
	StatusCode int // Zero when no response was received.
	Message    string
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a sentinel of the same type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.StatusCode == 0 && t.Cause == nil && t.Type == e.Type
}

// Sentinel errors for errors.Is checks.
var (
	ErrTimeout      = &ClientError{Type: ErrTypeTimeout, Message: "transcription timed out"}
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "transcription unauthorized"}
)

type transcribeRequest struct {
	AudioData string `json:"audio_data"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Client talks to the transcription API over HTTP. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Transcriber = (*Client)(nil)

// NewClient builds a client from the api section of the configuration.
func NewClient(cfg config.APIConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultAPITimeout
	}
	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Transcribe reads the WAV file at wavPath and sends it for transcription.
func (c *Client) Transcribe(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read recording: %w", err)
	}
	return c.TranscribeBytes(ctx, data)
}

// TranscribeBytes sends an in-memory WAV file for transcription.
func (c *Client) TranscribeBytes(ctx context.Context, wavData []byte) (string, error) {
	body, err := json.Marshal(transcribeRequest{
		AudioData: base64.StdEncoding.EncodeToString(wavData),
	})
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+TranscribePath, bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", ErrTimeout
		}
		return "", &ClientError{Type: ErrTypeConnection, Message: "transcription request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}
	applog.Debugf("Transcribe: %s %d (%d bytes audio) in %s", TranscribePath, resp.StatusCode, len(wavData), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp, respBody)
	}

	var out transcribeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, StatusCode: resp.StatusCode, Message: "invalid response body", Cause: err}
	}
	return out.Text, nil
}

// statusError surfaces the service's detail message when there is one.
func statusError(resp *http.Response, body []byte) error {
	msg := resp.Status
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		msg = e.Detail
	}

	typ := ErrTypeServer
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		typ = ErrTypeUnauthorized
	}
	return &ClientError{
		Type:       typ,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("transcription failed (%d): %s", resp.StatusCode, msg),
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
