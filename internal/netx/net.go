// Package netx performs the direct object-storage transfers behind
// pre-signed URLs: a content-length-aware PUT with progress reporting and
// a streaming GET for downloads.
package netx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/supportdesk/internal/common"
)

// maxErrorBody caps how much of a failed response is read for a message.
const maxErrorBody = 64 << 10

// Source is what Put needs from an upload file.
type Source interface {
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// ProgressFunc receives the running byte count and the declared total.
type ProgressFunc func(sent, total int64)

// StatusError is returned when the storage endpoint answered with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transfer failed: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("transfer failed: %s", e.Status)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func (e *StatusError) ServerMessage() string { return e.Message }

// Transferer talks to pre-signed URLs. It never adds auth headers: the URL
// itself is the credential.
type Transferer struct {
	client *http.Client
}

// NewTransferer wraps c; a nil client means a plain http.Client with no
// timeout of its own, so only the transport's limits apply.
func NewTransferer(c *http.Client) *Transferer {
	if c == nil {
		c = &http.Client{}
	}
	return &Transferer{client: c}
}

// Put uploads the raw bytes of src to url. ctx cancellation aborts the
// request; the resulting error still matches context.Canceled.
func (t *Transferer) Put(ctx context.Context, url string, src Source, progress ProgressFunc) error {
	body, err := src.Open()
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer body.Close()

	total := src.Size()

	var reader io.Reader = body
	if progress != nil {
		reader = &progressReader{r: body, total: total, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.ContentLength = total
	if total == 0 {
		req.Body = http.NoBody
	}

	ct := src.ContentType()
	if ct == "" {
		ct = common.DefaultContentType
	}
	req.Header.Set("Content-Type", ct)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download streams the body behind url into w and returns the byte count.
func (t *Transferer) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, statusError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	return n, nil
}

func statusError(resp *http.Response) *StatusError {
	e := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		e.Message = payload.Message
	}
	return e
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
