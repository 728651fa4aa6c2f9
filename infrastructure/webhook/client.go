// Package webhook wraps the single multipart call to the Discord webhook
// endpoint. The client interprets the HTTP outcome into typed errors; all
// state mutation stays in the upload worker.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// defaultRetryAfter is used when a 429 carries no parsable Retry-After header.
const defaultRetryAfter = time.Second

// RateLimitError reports an HTTP 429 with the wait the endpoint asked for.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StatusError reports a non-2xx, non-429 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.Code)
}

// TransportError marks a failure to reach the endpoint at all: connection
// refused, DNS, request timeout. These are the retryable network failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("posting to webhook: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Client struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

func NewClient(url string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Send posts one file plus caption as a multipart request.
// nil means the endpoint accepted the payload (2xx). A *RateLimitError means
// HTTP 429; a *StatusError any other non-2xx; anything else is a transport
// failure (connection refused, timeout, ...).
func (c *Client) Send(ctx context.Context, path, name, caption string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := c.createFilePart(form, path, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := form.WriteField("content", caption); err != nil {
		return fmt.Errorf("writing caption field: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finalizing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused across retries.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	default:
		return &StatusError{Code: resp.StatusCode}
	}
}

// createFilePart opens the binary form part with a sniffed content type.
// Detection failures fall back to application/octet-stream.
func (c *Client) createFilePart(form *multipart.Writer, path, name string) (io.Writer, error) {
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	} else {
		c.log.Debug("mime detection failed, using octet-stream", "path", path, "error", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)

	part, err := form.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	return part, nil
}

// retryAfter parses the Retry-After header as integer seconds.
func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
