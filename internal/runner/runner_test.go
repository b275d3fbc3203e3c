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

package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/config"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/logger"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/provider/fakeapi"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/reconciler"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

const hosts = `# AdAway default blocklist
127.0.0.1 localhost
::1 localhost

127.0.0.1 ads.example.com
127.0.0.1 tracker.example.net
127.0.0.1 cdn.keep.example.org
`

func blocklistServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRunner(t *testing.T, api *fakeapi.Server, listURL string) *Runner {
	t.Helper()
	cfg := config.Config{
		Token:          "token",
		Identifier:     "acc",
		Provider:       config.ProviderGateway,
		APIBaseURL:     api.URL,
		ListName:       "Adaway",
		ListURL:        listURL,
		WorkDir:        "/work",
		MaxListSize:    2,
		RequestTimeout: 5 * time.Second,
		ExcludeDomains: []string{"keep.example.org"},
		LogLevel:       "info",
		LogFormat:      "text",
	}
	return &Runner{Config: cfg, Log: logger.Discard(), Fs: afero.NewMemMapFs(), Clock: clock.NewMock()}
}

func TestRun_EndToEnd(t *testing.T) {
	api := fakeapi.New("token")
	defer api.Close()
	src := blocklistServer(t, http.StatusOK, hosts)
	r := newRunner(t, api, src.URL)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if res.State != reconciler.StateDone || res.Desired != 2 {
		t.Errorf("result = %+v", res)
	}

	lists := api.Lists()
	if len(lists) != 1 || lists[0].Name != "[AdBlock-Adaway] 1" {
		t.Fatalf("remote lists = %+v", lists)
	}
	if diff := cmp.Diff([]string{"ads.example.com", "tracker.example.net"}, lists[0].Items); diff != "" {
		t.Errorf("list items mismatch (-want +got):\n%s", diff)
	}

	rules := api.Rules()
	if len(rules) != 1 {
		t.Fatalf("remote rules = %+v", rules)
	}
	if rules[0].Name != "[AdBlock-Adaway] Block Ads" || !strings.Contains(rules[0].Traffic, "$"+lists[0].ID) {
		t.Errorf("rule = %+v", rules[0])
	}

	saved, err := afero.ReadFile(r.Fs, "/work/Adaway.txt")
	if err != nil {
		t.Fatalf("downloaded file not kept: %v", err)
	}
	if string(saved) != hosts {
		t.Errorf("saved file differs from the download")
	}

	// A second run with the same blocklist changes nothing.
	before := len(api.Mutations())
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("second Run() unexpected error: %v", err)
	}
	if after := api.Mutations(); len(after) != before {
		t.Errorf("second run mutated the remote: %v", after[before:])
	}
}

func TestRun_DryRun(t *testing.T) {
	api := fakeapi.New("token")
	defer api.Close()
	src := blocklistServer(t, http.StatusOK, hosts)
	r := newRunner(t, api, src.URL)
	r.Config.DryRun = true

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if !res.PolicyCreated || len(res.CreatedLists) != 1 {
		t.Errorf("result = %+v", res)
	}
	if m := api.Mutations(); len(m) != 0 {
		t.Errorf("dry run mutated the remote: %v", m)
	}
}

func TestRun_DownloadFailure(t *testing.T) {
	api := fakeapi.New("token")
	defer api.Close()
	src := blocklistServer(t, http.StatusNotFound, "missing")
	r := newRunner(t, api, src.URL)

	_, err := r.Run(context.Background())
	var tErr *syncerr.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("Run() error = %v; want *syncerr.TransportError", err)
	}
	if calls := api.Calls(); len(calls) != 0 {
		t.Errorf("remote API called after failed download: %v", calls)
	}
}

func TestRun_MalformedBlocklist(t *testing.T) {
	api := fakeapi.New("token")
	defer api.Close()
	src := blocklistServer(t, http.StatusOK, "127.0.0.1 ads.example.com\n0.0.0.0\n")
	r := newRunner(t, api, src.URL)

	_, err := r.Run(context.Background())
	if syncerr.ExitCode(err) != syncerr.ExitParse {
		t.Fatalf("Run() error = %v; want parse error", err)
	}
	if calls := api.Calls(); len(calls) != 0 {
		t.Errorf("remote API called after parse failure: %v", calls)
	}
}

func TestRun_RemoteFailure(t *testing.T) {
	api := fakeapi.New("token")
	defer api.Close()
	api.FailNext(http.MethodPost, "lists", http.StatusBadRequest)
	src := blocklistServer(t, http.StatusOK, hosts)
	r := newRunner(t, api, src.URL)

	res, err := r.Run(context.Background())
	if syncerr.ExitCode(err) != syncerr.ExitRemote {
		t.Fatalf("Run() error = %v; want remote error", err)
	}
	if res.State != reconciler.StateFailed {
		t.Errorf("State = %s", res.State)
	}
}

func TestRun_BadToken(t *testing.T) {
	api := fakeapi.New("other")
	defer api.Close()
	src := blocklistServer(t, http.StatusOK, hosts)
	r := newRunner(t, api, src.URL)

	_, err := r.Run(context.Background())
	var rErr *syncerr.RemoteError
	if !errors.As(err, &rErr) || rErr.Status != http.StatusForbidden {
		t.Fatalf("Run() error = %v; want 403 remote error", err)
	}
}

func TestRun_PushesMetrics(t *testing.T) {
	api := fakeapi.New("token")
	defer api.Close()
	src := blocklistServer(t, http.StatusOK, hosts)

	var pushed []string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		pushed = append(pushed, req.Method+" "+req.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	r := newRunner(t, api, src.URL)
	r.Config.PushgatewayURL = gw.URL

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	want := []string{"PUT /metrics/job/gateway_adblock_sync/list/Adaway"}
	if diff := cmp.Diff(want, pushed); diff != "" {
		t.Errorf("pushes mismatch (-want +got):\n%s", diff)
	}
}
