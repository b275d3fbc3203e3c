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

// MaxListSize is the item limit of one remote list.
const MaxListSize = 1000

// DomainList is a remote list of domains.
type DomainList struct {
	ID    string
	Name  string
	Count int
	Items []string
}

// GatewayPolicy is the remote rule blocking every domain of the lists it
// references.
type GatewayPolicy struct {
	ID      string
	Name    string
	Action  string
	Enabled bool
	Traffic string
	ListIDs []string
}

type listItem struct {
	Value string `json:"value"`
}

type listDTO struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"`
	Count       int        `json:"count,omitempty"`
	Items       []listItem `json:"items,omitempty"`
}

func (d listDTO) toDomainList() DomainList {
	l := DomainList{ID: d.ID, Name: d.Name, Count: d.Count}
	for _, it := range d.Items {
		l.Items = append(l.Items, it.Value)
	}
	if l.Count == 0 {
		l.Count = len(l.Items)
	}
	return l
}

type ruleSettings struct {
	BlockPageEnabled bool `json:"block_page_enabled"`
}

type ruleDTO struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Description  string        `json:"description,omitempty"`
	Action       string        `json:"action"`
	Enabled      bool          `json:"enabled"`
	Filters      []string      `json:"filters,omitempty"`
	Traffic      string        `json:"traffic"`
	RuleSettings *ruleSettings `json:"rule_settings,omitempty"`
}

func (d ruleDTO) toGatewayPolicy() GatewayPolicy {
	return GatewayPolicy{
		ID:      d.ID,
		Name:    d.Name,
		Action:  d.Action,
		Enabled: d.Enabled,
		Traffic: d.Traffic,
		ListIDs: ListIDsFromTraffic(d.Traffic),
	}
}
