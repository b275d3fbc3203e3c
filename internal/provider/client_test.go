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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/logger"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/transport"
)

type countingLimiter struct {
	taken int
}

func (l *countingLimiter) Take() time.Time {
	l.taken++
	return time.Now()
}

func TestClientDo_HeadersAndLimiter(t *testing.T) {
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"success":true,"errors":[],"result":{"id":"x"}}`))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	c := NewClient(srv.URL+"/", "secret", transport.New(transport.Options{Timeout: time.Second}), limiter, time.Second, logger.Discard())

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(context.Background(), "probe", http.MethodPost, "/things", map[string]string{"a": "b"}, &out); err != nil {
		t.Fatalf("do() unexpected error: %v", err)
	}
	if out.ID != "x" {
		t.Errorf("decoded id = %q; want x", out.ID)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if limiter.taken != 1 {
		t.Errorf("limiter taken %d times; want 1", limiter.taken)
	}
}

func TestClientDo_SuccessFalseIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":1003,"message":"invalid list"}],"result":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", transport.New(transport.Options{Timeout: time.Second}), nil, time.Second, logger.Discard())
	err := c.do(context.Background(), "create list", http.MethodPost, "lists", struct{}{}, nil)
	if err == nil || err.Error() != "failed to create list: http 200: 1003: invalid list" {
		t.Errorf("do() error = %v", err)
	}
}

func TestClientDo_NullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"errors":[],"result":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", transport.New(transport.Options{Timeout: time.Second}), nil, time.Second, logger.Discard())
	var out []listDTO
	if err := c.do(context.Background(), "get lists", http.MethodGet, "lists", nil, &out); err != nil {
		t.Fatalf("do() unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("out = %#v; want nil", out)
	}
}

func TestNewLimiter(t *testing.T) {
	unlimited := NewLimiter(0, nil)
	start := time.Now()
	for i := 0; i < 100; i++ {
		unlimited.Take()
	}
	if time.Since(start) > time.Second {
		t.Errorf("unlimited limiter is pacing")
	}

	if NewLimiter(4, clock.New()) == nil {
		t.Errorf("NewLimiter(4) returned nil")
	}
}
