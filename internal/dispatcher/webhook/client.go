// Package webhook delivers signed deployment payloads to tenant receivers.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Message is the body posted to a tenant's brand-deploy webhook.
type Message struct {
	CommitID       string          `json:"commitId"`
	Tool           string          `json:"tool"`
	ResourceType   string          `json:"resourceType"`
	Version        string          `json:"version"`
	Data           json.RawMessage `json:"data"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// Response is what the receiver answered on the last attempt.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	Received   bool
	Attempts   int
}

// Options configures a Client.
type Options struct {
	Secret      string
	Timeout     time.Duration
	MaxAttempts uint
	RetryDelay  time.Duration
	HTTPClient  *http.Client
}

// Client posts signed messages. Only transport failures are retried; a
// receiver that answers is never asked twice.
type Client struct {
	http        *http.Client
	secret      []byte
	maxAttempts uint
	retryDelay  time.Duration
	now         func() time.Time
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &Client{
		http:        hc,
		secret:      []byte(opts.Secret),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		now:         time.Now,
	}
}

// Deliver signs msg and posts it to url. The returned Response is non-nil
// whenever the receiver answered, even if err reports a rejection.
func (c *Client) Deliver(ctx context.Context, url string, msg Message) (*Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode webhook message failed")
	}

	attempts := 0
	resp, err := retry.DoWithData(
		func() (*Response, error) {
			attempts++
			return c.post(ctx, url, msg.IdempotencyKey, body)
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Ctx(ctx).Warn("webhook delivery failed, retrying",
				zap.String("url", url), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return &Response{Attempts: attempts}, appErr.TargetUnreachable(err, "tenant webhook unreachable")
	}
	resp.Attempts = attempts

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, appErr.TargetRejected(fmt.Sprintf("tenant webhook responded %d%s", resp.StatusCode, reason(resp.Body)))
	}
	if !resp.Received {
		return resp, appErr.TargetRejected("tenant webhook did not accept payload" + reason(resp.Body))
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, url, idempotencyKey string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	ts := c.now()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	req.Header.Set(HeaderSignature, Sign(c.secret, ts, body))
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	out := &Response{StatusCode: res.StatusCode}
	if gjson.ValidBytes(raw) {
		out.Body = raw
		out.Received = gjson.GetBytes(raw, "received").Bool()
	} else if len(raw) > 0 {
		// Keep non-JSON answers readable in the status ledger.
		quoted, _ := json.Marshal(string(raw))
		out.Body = quoted
	}
	return out, nil
}

func reason(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"error", "message", "result.error", "result"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return ": " + v.String()
		}
	}
	return ""
}
