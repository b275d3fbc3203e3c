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
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

// Fetcher downloads a blocklist into Dir and reads it back.
type Fetcher struct {
	Client *retryablehttp.Client
	Fs     afero.Fs
	Dir    string
	Log    logrus.FieldLogger
}

// NewFetcher returns a Fetcher storing files under dir on fs.
func NewFetcher(client *retryablehttp.Client, fs afero.Fs, dir string, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{Client: client, Fs: fs, Dir: dir, Log: log}
}

// Fetch downloads url to a file named after the blocklist and returns its
// content. Connection failures and non-200 responses are reported as
// *syncerr.TransportError.
func (f *Fetcher) Fetch(ctx context.Context, name, url string) (string, error) {
	f.Log.WithField("url", url).Info("downloading blocklist")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &syncerr.TransportError{Op: "GET", URL: url, Err: err}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", &syncerr.TransportError{Op: "GET", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &syncerr.TransportError{
			Op:  "GET",
			URL: url,
			Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	if err := f.Fs.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	path := filepath.Join(f.Dir, filepath.Base(name))

	file, err := f.Fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", &syncerr.TransportError{Op: "GET", URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	if info, err := f.Fs.Stat(path); err == nil {
		f.Log.WithFields(logrus.Fields{"path": path, "bytes": info.Size()}).Info("blocklist saved")
	}

	data, err := afero.ReadFile(f.Fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
