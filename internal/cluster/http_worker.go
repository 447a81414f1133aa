package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPWorker is the dispatcher side of a remote `salesindexer worker`.
type HTTPWorker struct {
	baseURL string
	client  *http.Client
}

func NewHTTPWorker(baseURL string, client *http.Client) *HTTPWorker {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPWorker{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (w *HTTPWorker) ID() string {
	return w.baseURL
}

func (w *HTTPWorker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+PingPath, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return w.unavailable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return w.unavailable(fmt.Errorf("ping returned %s", resp.Status))
	}
	return nil
}

func (w *HTTPWorker) Execute(ctx context.Context, cmd Command) (Result, error) {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode dispatch request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+DispatchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, w.unavailable(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, w.unavailable(fmt.Errorf("dispatch returned %s", resp.Status))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("worker %s: %s", w.baseURL, strings.TrimSpace(string(msg)))
	}

	var decoded DispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response of worker %s: %w", w.baseURL, err)
	}
	return FetchReceiptsResult{Receipts: decoded.Receipts}, nil
}

func (w *HTTPWorker) unavailable(err error) error {
	return &WorkerUnavailableError{WorkerID: w.baseURL, Err: err}
}
