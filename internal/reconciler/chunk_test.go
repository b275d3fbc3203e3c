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

package reconciler

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func domains(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("ad%d.example.com", i)
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{"empty", 0, 1000, nil},
		{"single", 1, 1000, []int{1}},
		{"exact", 2000, 1000, []int{1000, 1000}},
		{"remainder", 2500, 1000, []int{1000, 1000, 500}},
		{"small size", 5, 2, []int{2, 2, 1}},
		{"invalid size", 5, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := domains(tt.n)
			chunks := Chunk(in, tt.size)

			var sizes []int
			var joined []string
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				joined = append(joined, c...)
			}
			if diff := cmp.Diff(tt.sizes, sizes); diff != "" {
				t.Errorf("chunk sizes mismatch (-want +got):\n%s", diff)
			}
			if tt.size > 0 && tt.n > 0 {
				if diff := cmp.Diff(in, joined); diff != "" {
					t.Errorf("concatenated chunks differ from input (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestChunk_AppendDoesNotClobberNeighbour(t *testing.T) {
	in := domains(4)
	chunks := Chunk(in, 2)
	_ = append(chunks[0], "extra.example.com")
	if chunks[1][0] != in[2] {
		t.Errorf("append to first chunk overwrote the second: %q", chunks[1][0])
	}
}
