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

// Chunk splits domains into consecutive slices of at most size items,
// preserving order. Concatenating the chunks yields domains again.
func Chunk(domains []string, size int) [][]string {
	if size <= 0 || len(domains) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(domains)+size-1)/size)
	for start := 0; start < len(domains); start += size {
		end := start + size
		if end > len(domains) {
			end = len(domains)
		}
		chunks = append(chunks, domains[start:end:end])
	}
	return chunks
}
