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

package blocklist

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/logger"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/transport"
)

const hostsBody = "127.0.0.1 localhost\n0.0.0.0 ads.example.com\n"

func newTestFetcher(fs afero.Fs) *Fetcher {
	client := transport.New(transport.Options{Timeout: time.Second})
	return NewFetcher(client, fs, "/work", logger.Discard())
}

func TestFetch_SavesAndReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, hostsBody)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	got, err := newTestFetcher(fs).Fetch(context.Background(), "Adaway", srv.URL+"/hosts.txt")
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if got != hostsBody {
		t.Errorf("Fetch() = %q; want %q", got, hostsBody)
	}

	saved, err := afero.ReadFile(fs, "/work/Adaway")
	if err != nil {
		t.Fatalf("blocklist file not written: %v", err)
	}
	if string(saved) != hostsBody {
		t.Errorf("saved file = %q; want %q", saved, hostsBody)
	}
}

func TestFetch_NameCannotEscapeDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ads.example.com\n")
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	if _, err := newTestFetcher(fs).Fetch(context.Background(), "../../etc/list", srv.URL); err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/work/list"); !ok {
		t.Errorf("expected file at /work/list")
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(afero.NewMemMapFs()).Fetch(context.Background(), "Adaway", srv.URL)
	var tErr *syncerr.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("Fetch() error = %v; want *syncerr.TransportError", err)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, hostsBody)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(afero.NewMemMapFs()).Fetch(ctx, "Adaway", srv.URL)
	if syncerr.ExitCode(err) != syncerr.ExitTransport {
		t.Errorf("Fetch() error = %v; want transport error", err)
	}
}
