package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is a public LaTeX compilation service accepting the request
// format below
const DefaultURL = "https://latex.ytotech.com/builds/sync"

// maxResponseBytes caps the PDF size read back from the service
const maxResponseBytes = 32 << 20

// Client compiles LaTeX through a remote HTTP API
type Client struct {
	baseURL    string
	compiler   string
	httpClient *http.Client
}

// NewClient creates a new remote compilation client
func NewClient(baseURL, compiler string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if compiler == "" {
		compiler = "pdflatex"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		compiler: compiler,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// compileRequest is the API request structure
type compileRequest struct {
	Compiler  string     `json:"compiler"`
	Resources []resource `json:"resources"`
}

type resource struct {
	Main    bool   `json:"main"`
	Content string `json:"content"`
}

// apiError is returned with a non-2xx status
type apiError struct {
	Error  string `json:"error"`
	Logs   string `json:"log_files,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// StatusError reports a non-2xx response from the service
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed if sent again
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Compile sends LaTeX source to the service and returns the PDF bytes
func (c *Client) Compile(ctx context.Context, source string) ([]byte, error) {
	reqBody := compileRequest{
		Compiler: c.compiler,
		Resources: []resource{
			{Main: true, Content: source},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			msg := apiErr.Error
			if apiErr.Detail != "" {
				msg += " - " + apiErr.Detail
			}
			return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, fmt.Errorf("response is not a PDF (content-type %q)", resp.Header.Get("Content-Type"))
	}

	return body, nil
}

// CompileWithRetry attempts compilation with retries on transient failure
func (c *Client) CompileWithRetry(ctx context.Context, source string, maxRetries int) ([]byte, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		pdf, err := c.Compile(ctx, source)
		if err == nil {
			return pdf, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Don't retry a document the service rejected
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}

		if i == maxRetries-1 {
			break
		}

		// Exponential backoff
		backoff := time.Duration(1<<uint(i)) * backoffUnit
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// backoffUnit is the first retry delay; tests shorten it
var backoffUnit = time.Second
