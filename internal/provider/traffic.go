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
	"errors"
	"regexp"
	"strings"
)

// ErrNoLists is returned when a traffic expression is requested for an
// empty list set. The API has no defined meaning for an empty expression.
var ErrNoLists = errors.New("traffic expression needs at least one list")

// listRef matches the list references of a traffic expression.
var listRef = regexp.MustCompile(`in \$([A-Za-z0-9-]+)\)`)

// TrafficExpression ORs one membership test per list id:
//
//	any(dns.domains[*] in $L1) or any(dns.domains[*] in $L2)
func TrafficExpression(listIDs []string) (string, error) {
	if len(listIDs) == 0 {
		return "", ErrNoLists
	}
	terms := make([]string, 0, len(listIDs))
	for _, id := range listIDs {
		terms = append(terms, "any(dns.domains[*] in $"+id+")")
	}
	return strings.Join(terms, " or "), nil
}

// ListIDsFromTraffic returns the list ids referenced by expr, in order.
func ListIDsFromTraffic(expr string) []string {
	var ids []string
	for _, m := range listRef.FindAllStringSubmatch(expr, -1) {
		ids = append(ids, m[1])
	}
	return ids
}
