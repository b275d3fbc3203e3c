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

// Package syncerr defines the error kinds a sync run can fail with.
// None of them is retried: every error aborts the run.
package syncerr

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports missing or invalid configuration at startup.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransportError reports a failure to reach the blocklist source or the
// provider API at all (DNS, TCP, TLS, timeouts, body reads).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError reports a non-success response. Op names the failed
// operation, e.g. "get lists" or "create list".
type RemoteError struct {
	Op       string
	Status   int
	Messages []string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("failed to %s: http %d", e.Op, e.Status)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

// InvariantError reports remote state the reconciler refuses to touch.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "inconsistent remote state: " + e.Reason
}

// ParseError reports a blocklist line that could not be interpreted.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed blocklist line %d: %q", e.Line, e.Text)
}

// Process exit codes, one per error kind.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitParse     = 3
	ExitTransport = 4
	ExitRemote    = 5
	ExitInvariant = 6
)

// ExitCode maps err to the exit code of its kind.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr       *ConfigError
		parseErr     *ParseError
		transportErr *TransportError
		remoteErr    *RemoteError
		invErr       *InvariantError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &parseErr):
		return ExitParse
	case errors.As(err, &transportErr):
		return ExitTransport
	case errors.As(err, &remoteErr):
		return ExitRemote
	case errors.As(err, &invErr):
		return ExitInvariant
	}
	return ExitFailure
}
