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

// Package transport builds the HTTP client shared by the blocklist fetcher
// and the provider API client.
package transport

import (
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// Options configures New. RetryMax of zero means a single attempt.
type Options struct {
	Timeout  time.Duration
	RetryMax int
	Logger   logrus.FieldLogger
}

// New returns a retryable client whose final response is always handed
// back to the caller, so non-success statuses can be turned into typed
// errors instead of an opaque "giving up" error.
func New(opts Options) *retryablehttp.Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = opts.Timeout

	c := retryablehttp.NewClient()
	c.HTTPClient = httpClient
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = nil
	if opts.Logger != nil {
		c.Logger = leveledLogger{opts.Logger}
	}
	return c
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger. Request
// chatter goes to debug; failed attempts are reported by the callers.
type leveledLogger struct {
	log logrus.FieldLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}

func (l leveledLogger) with(keysAndValues []interface{}) logrus.FieldLogger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return l.log.WithFields(fields)
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
