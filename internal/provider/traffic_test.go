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
	"reflect"
	"testing"
)

func TestTrafficExpression(t *testing.T) {
	got, err := TrafficExpression([]string{"a1", "b2", "c3"})
	if err != nil {
		t.Fatalf("TrafficExpression() unexpected error: %v", err)
	}
	want := "any(dns.domains[*] in $a1) or any(dns.domains[*] in $b2) or any(dns.domains[*] in $c3)"
	if got != want {
		t.Errorf("TrafficExpression() = %q; want %q", got, want)
	}

	single, _ := TrafficExpression([]string{"only"})
	if single != "any(dns.domains[*] in $only)" {
		t.Errorf("TrafficExpression(single) = %q", single)
	}
}

func TestTrafficExpression_Empty(t *testing.T) {
	if _, err := TrafficExpression(nil); !errors.Is(err, ErrNoLists) {
		t.Errorf("TrafficExpression(nil) error = %v; want ErrNoLists", err)
	}
}

func TestListIDsFromTraffic_RoundTrip(t *testing.T) {
	ids := []string{"0b6f3a1e-1111-4c2d-9a53-7e1f0c4d8a01", "list-2"}
	expr, err := TrafficExpression(ids)
	if err != nil {
		t.Fatal(err)
	}
	if got := ListIDsFromTraffic(expr); !reflect.DeepEqual(got, ids) {
		t.Errorf("ListIDsFromTraffic() = %#v; want %#v", got, ids)
	}
	if got := ListIDsFromTraffic(""); got != nil {
		t.Errorf("ListIDsFromTraffic(\"\") = %#v; want nil", got)
	}
}
