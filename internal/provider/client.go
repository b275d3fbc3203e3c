// Copyright 2025- The gateway-adblock-sync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client issues authenticated requests against the provider REST API.
// It holds the credentials; nothing about them is process-global.
type Client struct {
	Context        context.Context       // base context for API calls
	BaseURL        string                // e.g. "https://api.cloudflare.com/client/v4"
	Token          string                // bearer API token
	HTTP           *retryablehttp.Client // underlying transport
	Limiter        ratelimit.Limiter     // paces every request
	RequestTimeout time.Duration         // per-request deadline
	Log            logrus.FieldLogger
}

// NewClient returns a Client for baseURL authenticated with token.
func NewClient(baseURL, token string, httpClient *retryablehttp.Client, limiter ratelimit.Limiter, timeout time.Duration, log logrus.FieldLogger) *Client {
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	log.WithField("base_url", baseURL).Debug("provider API client created")
	return &Client{
		Context:        context.Background(),
		BaseURL:        strings.TrimSuffix(baseURL, "/"),
		Token:          token,
		HTTP:           httpClient,
		Limiter:        limiter,
		RequestTimeout: timeout,
		Log:            log,
	}
}

// NewLimiter paces requests to rate per second; zero means unlimited.
func NewLimiter(rate int, clk clock.Clock) ratelimit.Limiter {
	if rate <= 0 {
		return ratelimit.NewUnlimited()
	}
	if clk == nil {
		clk = clock.New()
	}
	return ratelimit.New(rate, ratelimit.Per(time.Second), ratelimit.WithClock(clk))
}

// envelope is the wrapper around every API response.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiMessage    `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (m apiMessage) String() string {
	if m.Code == 0 {
		return m.Message
	}
	return fmt.Sprintf("%d: %s", m.Code, m.Message)
}

// do sends body as JSON to path and decodes the envelope result into out.
// op names the operation in a *syncerr.RemoteError ("get lists").
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	if ctx == nil {
		ctx = c.Context
	}
	if c.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
	}

	url := c.BaseURL + "/" + strings.TrimPrefix(path, "/")

	var payload interface{}
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return &syncerr.TransportError{Op: method, URL: url, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Limiter.Take()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &syncerr.TransportError{Op: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &syncerr.TransportError{Op: method, URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.Log.WithFields(logrus.Fields{
		"op":     op,
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("provider API call")

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode != http.StatusOK {
		rerr := &syncerr.RemoteError{Op: op, Status: resp.StatusCode}
		if decodeErr == nil {
			for _, m := range env.Errors {
				rerr.Messages = append(rerr.Messages, m.String())
			}
		}
		return rerr
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if !env.Success && len(env.Errors) > 0 {
		rerr := &syncerr.RemoteError{Op: op, Status: resp.StatusCode}
		for _, m := range env.Errors {
			rerr.Messages = append(rerr.Messages, m.String())
		}
		return rerr
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", op, err)
	}
	return nil
}
