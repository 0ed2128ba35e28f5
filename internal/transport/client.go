// SPDX-License-Identifier: Apache-2.0

// Package transport implements the HTTP side of the sync engine: a resty
// based blob fetcher with a bounded retry policy and the snapshot manifest
// API client.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/soundpool/snapsync/internal/logger"
)

// Config holds network settings for the transport client.
type Config struct {
	// BaseURL is the snapshot service endpoint used by GetSnapshot. Blob
	// URLs from the manifest are absolute and bypass it.
	BaseURL string
	// Timeout is the per-attempt request timeout.
	Timeout time.Duration
	// RetryCount is the number of re-issues after the first attempt.
	// Zero or negative defaults to 2, yielding 3 attempts total per
	// request.
	RetryCount int
	// RetryWaitTime is the base backoff between attempts.
	RetryWaitTime time.Duration
}

// Client fetches blobs and snapshot manifests over HTTP.
type Client struct {
	client *resty.Client
	logger *logger.Logger
}

// NewClient builds a transport client. Retries are restricted to 5xx
// responses and transport-level failures, including per-attempt timeouts;
// client errors (4xx) and caller cancellation are never retried.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 2
	}
	if cfg.RetryWaitTime <= 0 {
		cfg.RetryWaitTime = 500 * time.Millisecond
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				// A timeout surfaces as DeadlineExceeded through
				// http.Client.Timeout and is transient; only a caller
				// abort stops the retry chain.
				return !errors.Is(err, context.Canceled)
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{client: cli, logger: log}
}

// FetchBlob downloads url and returns the raw body. Non-2xx responses that
// survive the retry budget come back as *HTTPError; a cancelled context
// surfaces as a context error so callers can classify it.
func (c *Client) FetchBlob(ctx context.Context, url string) ([]byte, error) {
	reqID := uuid.NewString()

	c.logger.Debug().Str("req_id", reqID).Str("url", url).Msg("fetch blob")

	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, ctxErr)
		}
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		c.logger.Debug().
			Str("req_id", reqID).
			Int("status", resp.StatusCode()).
			Msg("fetch blob failed")
		return nil, &HTTPError{
			Status: resp.StatusCode(),
			Body:   strings.TrimSpace(string(resp.Body())),
		}
	}

	return resp.Body(), nil
}
