package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/pkg/metrics"
)

const (
	defaultTimeout    = 15 * time.Second
	getRetryAttempts  = 3
	getRetryDelay     = 200 * time.Millisecond
	maxErrorBodyBytes = 4096
)

// HTTPError is returned when the node replies with a non successful status.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("node replied %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("node replied %d", e.StatusCode)
}

func isNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// Client talks to the REST gateway of a node. It implements the transaction,
// multisig and namespace repositories consumed by the application.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing node url")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid node url %s", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var httpClient *http.Client
	if u.Scheme == "https" {
		httpClient = &http.Client{Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}}
	} else {
		httpClient = &http.Client{}
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("node client: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("node client: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
		log:        logFn,
		warn:       warnFn,
	}, nil
}

// get retries transient failures, never client errors.
func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	return retry.Do(
		func() error {
			return c.doRequest(ctx, op, http.MethodGet, path, nil, out)
		},
		retry.Context(ctx),
		retry.Attempts(getRetryAttempts),
		retry.Delay(getRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode >= http.StatusInternalServerError
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log("retry %d for %s %s: %s", n+1, http.MethodGet, path, err)
		}),
	)
}

func (c *Client) post(
	ctx context.Context, op, path string, body, out interface{},
) error {
	return c.doRequest(ctx, op, http.MethodPost, path, body, out)
}

func (c *Client) put(
	ctx context.Context, op, path string, body, out interface{},
) error {
	return c.doRequest(ctx, op, http.MethodPut, path, body, out)
}

func (c *Client) doRequest(
	ctx context.Context, op, method, path string, body, out interface{},
) error {
	timer := metrics.NodeRequestTimer(op)
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
		payload = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json;charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &errResp); err == nil {
			httpErr.Code = errResp.Code
			httpErr.Message = errResp.Message
		}
		return httpErr
	}

	if out == nil {
		// nolint
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}
