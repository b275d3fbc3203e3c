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

// Package blocklist downloads a published blocklist and turns it into the
// ordered sequence of domains to block.
package blocklist

import (
	"strings"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

// Format is the detected layout of a blocklist file.
type Format int

const (
	// FormatDomains is one domain per line.
	FormatDomains Format = iota
	// FormatHosts is "IP domain" pairs, as in /etc/hosts.
	FormatHosts
)

func (f Format) String() string {
	if f == FormatHosts {
		return "hosts"
	}
	return "domains"
}

// hostsSentinels mark a hosts file wherever they appear in the text.
var hostsSentinels = []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"}

// DetectFormat reports FormatHosts if any sentinel appears anywhere in
// text, FormatDomains otherwise.
func DetectFormat(text string) Format {
	for _, s := range hostsSentinels {
		if strings.Contains(text, s) {
			return FormatHosts
		}
	}
	return FormatDomains
}

// Extract returns the domains of text in file order. Duplicates are kept:
// the remote change detection compares counts and depends on them.
// Blank lines and lines starting with '#' are skipped. A hosts line
// without a domain field fails with a *syncerr.ParseError.
func Extract(text string) ([]string, Format, error) {
	format := DetectFormat(text)

	var domains []string
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if format == FormatDomains {
			domains = append(domains, line)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, format, &syncerr.ParseError{Line: i + 1, Text: raw}
		}
		if fields[1] == "localhost" {
			continue
		}
		domains = append(domains, fields[1])
	}
	return domains, format, nil
}
