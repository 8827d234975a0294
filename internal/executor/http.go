package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPExecutor talks to the automation service over its JSON API.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewHTTP creates an executor client for the automation service at baseURL.
func NewHTTP(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("executor"),
	}
}

type jobRequest struct {
	ExchangeUUID string         `json:"exchange_uuid"`
	VideoURL     string         `json:"video_url"`
	Terms        map[string]int `json:"terms"`
}

func (h *HTTPExecutor) Execute(ctx context.Context, exchangeUUID, videoURL string, terms map[string]int) (*Result, error) {
	return h.post(ctx, "/execute", exchangeUUID, videoURL, terms)
}

func (h *HTTPExecutor) Verify(ctx context.Context, exchangeUUID, videoURL string, terms map[string]int) (*Result, error) {
	return h.post(ctx, "/verify", exchangeUUID, videoURL, terms)
}

func (h *HTTPExecutor) post(ctx context.Context, path, exchangeUUID, videoURL string, terms map[string]int) (*Result, error) {
	body, err := json.Marshal(jobRequest{ExchangeUUID: exchangeUUID, VideoURL: videoURL, Terms: terms})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	h.log.Debug("dispatching job",
		zap.String("path", path),
		zap.String("exchange", exchangeUUID))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call automation service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result Result
	if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	if result.Actions == nil {
		result.Actions = map[string]bool{}
	}

	if resp.StatusCode != http.StatusOK {
		// Non-200 still carries the partial result when the service
		// managed some of the actions before failing.
		return &result, fmt.Errorf("automation service %s: status %d", path, resp.StatusCode)
	}
	return &result, nil
}
