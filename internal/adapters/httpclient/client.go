// Package httpclient talks to the content filter HTTP API: it uploads a
// document as ordered chunks and polls for the filtered result.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/infrastructure/chunking"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
)

const DefaultPollInterval = 200 * time.Millisecond

const maxErrorBodyBytes = 64 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	splitter   *chunking.Splitter
}

type Options struct {
	Timeout        time.Duration
	ChunkBytes     int
	ResilienceExec *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExec,
		splitter:   chunking.NewSplitter(opts.ChunkBytes),
	}
}

type uploadRequest struct {
	UploadID    string `json:"uploadId"`
	ChunkIndex  int    `json:"chunkIndex"`
	Data        string `json:"data"`
	IsLastChunk bool   `json:"isLastChunk"`
}

type statusResponse struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
	Data     string `json:"data"`
	Message  string `json:"message"`
}

func (c *Client) UploadChunk(ctx context.Context, chunk domain.ChunkUpload) error {
	payload := uploadRequest{
		UploadID:    chunk.DocumentID,
		ChunkIndex:  chunk.ChunkIndex,
		Data:        chunk.Data,
		IsLastChunk: chunk.IsLastChunk,
	}
	return c.run(ctx, "upload", func(ctx context.Context) error {
		_, err := c.doJSON(ctx, http.MethodPost, "/api/upload", payload, http.StatusAccepted)
		return err
	})
}

// GetResult maps the API's response codes back onto domain.Result.
func (c *Client) GetResult(ctx context.Context, uploadID string) (domain.Result, error) {
	var res domain.Result
	err := c.run(ctx, "result", func(ctx context.Context) error {
		out, err := c.doJSON(ctx, http.MethodGet, "/api/result/"+uploadID, nil,
			http.StatusOK, http.StatusAccepted, http.StatusNotFound)
		if err != nil {
			return err
		}
		switch out.Status {
		case "Completed":
			res = domain.CompletedResult(out.Data, 0)
		case "Processing":
			res = domain.PendingResult()
		case "NotFound":
			res = domain.NotFoundResult()
		default:
			return fmt.Errorf("unexpected result status %q", out.Status)
		}
		return nil
	})
	return res, err
}

// ErrUnconfirmedUpload reports that the terminal chunk of an upload failed in
// a way that does not tell whether the server assembled the document. The
// upload id must not be reused: resending the terminal chunk could finalize a
// new session holding only that chunk.
var ErrUnconfirmedUpload = errors.New("terminal chunk outcome unknown")

// maxUploadAttempts bounds how many fresh upload ids Upload tries.
const maxUploadAttempts = 2

// Submit uploads text as consecutive chunks and returns how many were sent.
func (c *Client) Submit(ctx context.Context, uploadID, text string) (int, error) {
	chunks := c.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("text is empty"))
	}
	last := len(chunks) - 1
	for i, data := range chunks[:last] {
		err := c.UploadChunk(ctx, domain.ChunkUpload{
			DocumentID: uploadID,
			ChunkIndex: i,
			Data:       data,
		})
		if err != nil {
			return i, fmt.Errorf("upload chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	if err := c.uploadTerminalChunk(ctx, uploadID, last, chunks[last]); err != nil {
		return last, fmt.Errorf("upload chunk %d/%d: %w", last+1, len(chunks), err)
	}
	return len(chunks), nil
}

// Upload submits text under a fresh upload id and returns that id. An
// unconfirmed terminal chunk restarts the whole sequence under a new id.
func (c *Client) Upload(ctx context.Context, text string) (string, int, error) {
	var err error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		id := uuid.NewString()
		var sent int
		sent, err = c.Submit(ctx, id, text)
		if err == nil {
			return id, sent, nil
		}
		if !errors.Is(err, ErrUnconfirmedUpload) || ctx.Err() != nil {
			return "", sent, err
		}
		slog.Warn("upload_restarted", "upload_id", id, "attempt", attempt, "error", err)
	}
	return "", 0, fmt.Errorf("upload after %d attempts: %w", maxUploadAttempts, err)
}

// uploadTerminalChunk retries only responses the server sends before the
// upload handler runs. Any other failure leaves the outcome unknown.
func (c *Client) uploadTerminalChunk(ctx context.Context, uploadID string, index int, data string) error {
	payload := uploadRequest{
		UploadID:    uploadID,
		ChunkIndex:  index,
		Data:        data,
		IsLastChunk: true,
	}
	call := func(ctx context.Context) error {
		_, err := c.doJSON(ctx, http.MethodPost, "/api/upload", payload, http.StatusAccepted)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "api.upload_final", call, classifyTerminalChunkError)
	} else {
		err = call(ctx)
	}
	if err == nil {
		return nil
	}
	if !isRejectedBeforeHandler(err) && !isClientRejection(err) && !resilience.IsCircuitOpen(err) {
		err = fmt.Errorf("%w: %w", ErrUnconfirmedUpload, err)
	}
	return wrapTemporaryIfNeeded("upload", err)
}

// Await polls until the result is completed or ctx ends.
func (c *Client) Await(ctx context.Context, uploadID string, interval time.Duration) (string, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := c.GetResult(ctx, uploadID)
		if err != nil {
			return "", err
		}
		if res.Status == domain.StatusCompleted {
			return res.Data, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("await result %s (last status %s): %w", uploadID, res.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) run(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "api."+operation, call, classifyAPIError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, accept ...int) (statusResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return statusResponse{}, fmt.Errorf("marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return statusResponse{}, fmt.Errorf("create %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return statusResponse{}, fmt.Errorf("api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			// Completed results can be as large as the upload quota, so the
			// body is streamed rather than buffered under a fixed cap.
			var out statusResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return statusResponse{}, fmt.Errorf("decode %s response: %w", path, err)
			}
			return out, nil
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return statusResponse{}, fmt.Errorf("read %s response: %w", path, err)
	}
	var out statusResponse
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &out) == nil && out.Message != "" {
		msg = out.Message
	}
	return statusResponse{}, &HTTPStatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    msg,
		RetryAfter: resp.Header.Get("Retry-After"),
	}
}
