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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const createdBy = "Created by gateway-adblock-sync."

// Scope locates the list and rule collections of one provider variant.
type Scope interface {
	// Kind is "gateway" or "zone".
	Kind() string
	ListsPath() string
	RulesPath() string
	// UpdatesName reports whether a rule update also rewrites its name.
	UpdatesName() bool
}

// AccountScope addresses the account-level Gateway lists and rules.
type AccountScope struct {
	AccountID string
}

func (s AccountScope) Kind() string { return "gateway" }

func (s AccountScope) ListsPath() string {
	return "accounts/" + url.PathEscape(s.AccountID) + "/gateway/lists"
}

func (s AccountScope) RulesPath() string {
	return "accounts/" + url.PathEscape(s.AccountID) + "/gateway/rules"
}

func (s AccountScope) UpdatesName() bool { return true }

// ZoneScope addresses the zone-level lists and firewall access rules.
type ZoneScope struct {
	ZoneID string
}

func (s ZoneScope) Kind() string { return "zone" }

func (s ZoneScope) ListsPath() string {
	return "zones/" + url.PathEscape(s.ZoneID) + "/lists"
}

func (s ZoneScope) RulesPath() string {
	return "zones/" + url.PathEscape(s.ZoneID) + "/firewall/access_rules/rules"
}

func (s ZoneScope) UpdatesName() bool { return false }

// ScopeFor selects the variant by name.
func ScopeFor(kind, identifier string) (Scope, error) {
	switch kind {
	case "gateway":
		return AccountScope{AccountID: identifier}, nil
	case "zone":
		return ZoneScope{ZoneID: identifier}, nil
	default:
		return nil, fmt.Errorf("unknown provider variant %q", kind)
	}
}

// API manages the lists and the block rule of one scope.
type API struct {
	client *Client
	scope  Scope
}

// NewAPI binds client to scope.
func NewAPI(client *Client, scope Scope) *API {
	return &API{client: client, scope: scope}
}

// Scope returns the variant the API talks to.
func (a *API) Scope() Scope {
	return a.scope
}

// ListLists returns the remote lists whose name starts with prefix.
func (a *API) ListLists(ctx context.Context, prefix string) ([]DomainList, error) {
	var dtos []listDTO
	if err := a.client.do(ctx, "get lists", http.MethodGet, a.scope.ListsPath(), nil, &dtos); err != nil {
		return nil, err
	}

	var lists []DomainList
	for _, d := range dtos {
		if strings.HasPrefix(d.Name, prefix) {
			lists = append(lists, d.toDomainList())
		}
	}
	return lists, nil
}

// CreateList creates one DOMAIN list. The caller keeps domains within
// the provider's size limit.
func (a *API) CreateList(ctx context.Context, name string, domains []string) (DomainList, error) {
	items := make([]listItem, 0, len(domains))
	for _, d := range domains {
		items = append(items, listItem{Value: d})
	}
	body := listDTO{
		Name:        name,
		Description: createdBy,
		Type:        "DOMAIN",
		Items:       items,
	}

	var created listDTO
	if err := a.client.do(ctx, "create list", http.MethodPost, a.scope.ListsPath(), body, &created); err != nil {
		return DomainList{}, err
	}

	l := created.toDomainList()
	if l.Name == "" {
		l.Name = name
	}
	if len(l.Items) == 0 {
		l.Items = domains
	}
	if l.Count == 0 {
		l.Count = len(domains)
	}
	return l, nil
}

// DeleteList deletes the list with the given id. Deleting an id that is
// already gone fails like any other non-success response.
func (a *API) DeleteList(ctx context.Context, id string) error {
	return a.client.do(ctx, "delete list", http.MethodDelete, a.scope.ListsPath()+"/"+url.PathEscape(id), nil, nil)
}

// ListPolicies returns the rules whose name starts with prefix.
func (a *API) ListPolicies(ctx context.Context, prefix string) ([]GatewayPolicy, error) {
	var dtos []ruleDTO
	if err := a.client.do(ctx, "get firewall policies", http.MethodGet, a.scope.RulesPath(), nil, &dtos); err != nil {
		return nil, err
	}

	var policies []GatewayPolicy
	for _, d := range dtos {
		if strings.HasPrefix(d.Name, prefix) {
			policies = append(policies, d.toGatewayPolicy())
		}
	}
	return policies, nil
}

// CreatePolicy creates an enabled DNS block rule over listIDs, with the
// block page disabled.
func (a *API) CreatePolicy(ctx context.Context, name string, listIDs []string) (GatewayPolicy, error) {
	traffic, err := TrafficExpression(listIDs)
	if err != nil {
		return GatewayPolicy{}, fmt.Errorf("create firewall policy %q: %w", name, err)
	}
	body := ruleDTO{
		Name:         name,
		Description:  createdBy,
		Action:       "block",
		Enabled:      true,
		Filters:      []string{"dns"},
		Traffic:      traffic,
		RuleSettings: &ruleSettings{BlockPageEnabled: false},
	}

	var created ruleDTO
	if err := a.client.do(ctx, "create firewall policy", http.MethodPost, a.scope.RulesPath(), body, &created); err != nil {
		return GatewayPolicy{}, err
	}
	return a.fill(created, body), nil
}

// UpdatePolicy replaces the traffic expression of rule id. The name is
// only sent when the scope supports renaming.
func (a *API) UpdatePolicy(ctx context.Context, name, id string, listIDs []string) (GatewayPolicy, error) {
	traffic, err := TrafficExpression(listIDs)
	if err != nil {
		return GatewayPolicy{}, fmt.Errorf("update firewall policy %q: %w", id, err)
	}
	body := ruleDTO{
		Action:  "block",
		Enabled: true,
		Traffic: traffic,
	}
	if a.scope.UpdatesName() {
		body.Name = name
	}

	var updated ruleDTO
	path := a.scope.RulesPath() + "/" + url.PathEscape(id)
	if err := a.client.do(ctx, "update firewall policy", http.MethodPut, path, body, &updated); err != nil {
		return GatewayPolicy{}, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	if updated.Name == "" {
		updated.Name = name
	}
	return a.fill(updated, body), nil
}

// DeletePolicy deletes rule id.
func (a *API) DeletePolicy(ctx context.Context, id string) error {
	return a.client.do(ctx, "delete firewall policy", http.MethodDelete, a.scope.RulesPath()+"/"+url.PathEscape(id), nil, nil)
}

// fill completes fields a terse API response left out with what was sent.
func (a *API) fill(got, sent ruleDTO) GatewayPolicy {
	if got.Name == "" {
		got.Name = sent.Name
	}
	if got.Traffic == "" {
		got.Traffic = sent.Traffic
	}
	if got.Action == "" {
		got.Action = sent.Action
		got.Enabled = sent.Enabled
	}
	return got.toGatewayPolicy()
}
