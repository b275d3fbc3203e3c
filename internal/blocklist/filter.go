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
	"net/netip"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"sigs.k8s.io/external-dns/endpoint"
)

// Filter drops entries an operator never wants blocked. The zero value
// keeps everything.
type Filter struct {
	exclude *endpoint.DomainFilter
	strict  bool
	log     logrus.FieldLogger
}

// NewFilter excludes the given domains and their subdomains and, when
// strict is set, entries that are not syntactically domain names.
func NewFilter(exclude []string, strict bool, log logrus.FieldLogger) *Filter {
	f := &Filter{strict: strict, log: log}
	if len(exclude) > 0 {
		f.exclude = endpoint.NewDomainFilterWithExclusions(nil, exclude)
	}
	return f
}

// Enabled reports whether Apply can remove anything.
func (f *Filter) Enabled() bool {
	return f != nil && (f.exclude != nil || f.strict)
}

// Apply returns the kept domains in their original order, duplicates
// included. With no rule enabled it returns domains unchanged.
func (f *Filter) Apply(domains []string) []string {
	if !f.Enabled() {
		return domains
	}

	kept := make([]string, 0, len(domains))
	var excluded, invalid int
	for _, d := range domains {
		if f.strict && !isDomainName(d) {
			invalid++
			if f.log != nil {
				f.log.WithField("entry", d).Debug("dropping invalid domain")
			}
			continue
		}
		if f.exclude != nil && !f.exclude.Match(d) {
			excluded++
			continue
		}
		kept = append(kept, d)
	}

	if f.log != nil && (excluded > 0 || invalid > 0) {
		f.log.WithFields(logrus.Fields{
			"excluded": excluded,
			"invalid":  invalid,
			"kept":     len(kept),
		}).Info("filtered blocklist")
	}
	return kept
}

func isDomainName(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return false
	}
	_, ok := dns.IsDomainName(s)
	return ok
}
