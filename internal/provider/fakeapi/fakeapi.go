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

// Package fakeapi serves an in-memory imitation of the provider's list and
// rule endpoints for tests. Both the account and the zone path layouts
// are accepted.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// List is a stored domain list.
type List struct {
	ID          string
	Name        string
	Description string
	Type        string
	Items       []string
}

// Rule is a stored gateway rule.
type Rule struct {
	ID               string
	Name             string
	Description      string
	Action           string
	Enabled          bool
	Filters          []string
	Traffic          string
	BlockPageEnabled bool
}

// Call records one request: Method, collection Kind ("lists" or "rules")
// and the target ID for item requests.
type Call struct {
	Method string
	Kind   string
	ID     string
}

// Server is the fake API. Point a provider.Client's BaseURL at URL.
type Server struct {
	*httptest.Server
	Token string

	mu       sync.Mutex
	lists    []List
	rules    []Rule
	calls    []Call
	failures map[string]int
	nextID   int
}

// New starts a fake API that requires the given bearer token.
func New(token string) *Server {
	s := &Server{Token: token, failures: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SeedList stores a list without recording a call.
func (s *Server) SeedList(name string, items []string) List {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := List{ID: s.id("list"), Name: name, Type: "DOMAIN", Items: items}
	s.lists = append(s.lists, l)
	return l
}

// SeedRule stores a rule without recording a call.
func (s *Server) SeedRule(name, traffic string) Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Rule{ID: s.id("rule"), Name: name, Action: "block", Enabled: true, Filters: []string{"dns"}, Traffic: traffic}
	s.rules = append(s.rules, r)
	return r
}

// FailNext makes the next method request on kind answer with status.
func (s *Server) FailNext(method, kind string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+kind] = status
}

// Lists returns a copy of the stored lists.
func (s *Server) Lists() []List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]List(nil), s.lists...)
}

// Rules returns a copy of the stored rules.
func (s *Server) Rules() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Rule(nil), s.rules...)
}

// Calls returns every recorded request in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Mutations returns the recorded requests other than GET.
func (s *Server) Mutations() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) id(kind string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", kind, s.nextID)
}

type wireItem struct {
	Value string `json:"value"`
}

type wireList struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"`
	Count       int        `json:"count"`
	Items       []wireItem `json:"items,omitempty"`
}

type wireRule struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Description  string        `json:"description,omitempty"`
	Action       string        `json:"action"`
	Enabled      bool          `json:"enabled"`
	Filters      []string      `json:"filters,omitempty"`
	Traffic      string        `json:"traffic"`
	RuleSettings *wireSettings `json:"rule_settings,omitempty"`
}

type wireSettings struct {
	BlockPageEnabled bool `json:"block_page_enabled"`
}

// route splits a path into the collection kind and optional item id.
func route(path string) (kind, id string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "lists" || parts[i] == "rules" {
			if i == len(parts)-1 {
				return parts[i], "", true
			}
			if i == len(parts)-2 {
				return parts[i], parts[i+1], true
			}
			return "", "", false
		}
	}
	return "", "", false
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusForbidden, 10000, "Authentication error")
		return
	}

	kind, id, ok := route(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, 7000, "No route for that URI")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: r.Method, Kind: kind, ID: id})
	if status, fail := s.failures[r.Method+" "+kind]; fail {
		delete(s.failures, r.Method+" "+kind)
		writeError(w, status, 9999, "injected failure")
		return
	}

	switch {
	case kind == "lists" && id == "" && r.Method == http.MethodGet:
		out := make([]wireList, 0, len(s.lists))
		for _, l := range s.lists {
			out = append(out, wireList{ID: l.ID, Name: l.Name, Description: l.Description, Type: l.Type, Count: len(l.Items)})
		}
		writeResult(w, out)
	case kind == "lists" && id == "" && r.Method == http.MethodPost:
		var in wireList
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, 7001, err.Error())
			return
		}
		l := List{ID: s.id("list"), Name: in.Name, Description: in.Description, Type: in.Type}
		for _, it := range in.Items {
			l.Items = append(l.Items, it.Value)
		}
		s.lists = append(s.lists, l)
		writeResult(w, wireList{ID: l.ID, Name: l.Name, Description: l.Description, Type: l.Type, Count: len(l.Items), Items: in.Items})
	case kind == "lists" && id != "" && r.Method == http.MethodDelete:
		for i, l := range s.lists {
			if l.ID == id {
				s.lists = append(s.lists[:i], s.lists[i+1:]...)
				writeResult(w, map[string]string{"id": id})
				return
			}
		}
		writeError(w, http.StatusNotFound, 7002, "list not found")
	case kind == "rules" && id == "" && r.Method == http.MethodGet:
		out := make([]wireRule, 0, len(s.rules))
		for _, rule := range s.rules {
			out = append(out, toWireRule(rule))
		}
		writeResult(w, out)
	case kind == "rules" && id == "" && r.Method == http.MethodPost:
		var in wireRule
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, 7001, err.Error())
			return
		}
		rule := Rule{
			ID:          s.id("rule"),
			Name:        in.Name,
			Description: in.Description,
			Action:      in.Action,
			Enabled:     in.Enabled,
			Filters:     in.Filters,
			Traffic:     in.Traffic,
		}
		if in.RuleSettings != nil {
			rule.BlockPageEnabled = in.RuleSettings.BlockPageEnabled
		}
		s.rules = append(s.rules, rule)
		writeResult(w, toWireRule(rule))
	case kind == "rules" && id != "" && r.Method == http.MethodPut:
		var in wireRule
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, 7001, err.Error())
			return
		}
		for i := range s.rules {
			if s.rules[i].ID != id {
				continue
			}
			if in.Name != "" {
				s.rules[i].Name = in.Name
			}
			s.rules[i].Action = in.Action
			s.rules[i].Enabled = in.Enabled
			s.rules[i].Traffic = in.Traffic
			writeResult(w, toWireRule(s.rules[i]))
			return
		}
		writeError(w, http.StatusNotFound, 7003, "rule not found")
	case kind == "rules" && id != "" && r.Method == http.MethodDelete:
		for i, rule := range s.rules {
			if rule.ID == id {
				s.rules = append(s.rules[:i], s.rules[i+1:]...)
				writeResult(w, map[string]string{"id": id})
				return
			}
		}
		writeError(w, http.StatusNotFound, 7003, "rule not found")
	default:
		writeError(w, http.StatusMethodNotAllowed, 7004, "method not allowed")
	}
}

func toWireRule(r Rule) wireRule {
	return wireRule{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Action:       r.Action,
		Enabled:      r.Enabled,
		Filters:      r.Filters,
		Traffic:      r.Traffic,
		RuleSettings: &wireSettings{BlockPageEnabled: r.BlockPageEnabled},
	}
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"errors":   []interface{}{},
		"messages": []interface{}{},
		"result":   result,
	})
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"errors":  []map[string]interface{}{{"code": code, "message": msg}},
		"result":  nil,
	})
}
