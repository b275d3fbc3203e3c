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
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/provider"
)

// DryRun wraps real repositories: reads reach the remote API, mutations
// are logged and simulated in memory so later reads reflect them.
type DryRun struct {
	lists    ListRepository
	policies PolicyRepository
	log      logrus.FieldLogger

	seq             int
	deletedLists    map[string]bool
	deletedPolicies map[string]bool
	createdLists    []provider.DomainList
	createdPolicies []provider.GatewayPolicy
	updated         map[string]provider.GatewayPolicy
}

// NewDryRun returns a DryRun over lists and policies.
func NewDryRun(lists ListRepository, policies PolicyRepository, log logrus.FieldLogger) *DryRun {
	return &DryRun{
		lists:           lists,
		policies:        policies,
		log:             log.WithField("dry_run", true),
		deletedLists:    map[string]bool{},
		deletedPolicies: map[string]bool{},
		updated:         map[string]provider.GatewayPolicy{},
	}
}

var (
	_ ListRepository   = (*DryRun)(nil)
	_ PolicyRepository = (*DryRun)(nil)
)

func (d *DryRun) nextID(kind string) string {
	d.seq++
	return fmt.Sprintf("dry-run-%s-%d", kind, d.seq)
}

func (d *DryRun) ListLists(ctx context.Context, prefix string) ([]provider.DomainList, error) {
	remote, err := d.lists.ListLists(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []provider.DomainList
	for _, l := range remote {
		if !d.deletedLists[l.ID] {
			out = append(out, l)
		}
	}
	for _, l := range d.createdLists {
		if strings.HasPrefix(l.Name, prefix) && !d.deletedLists[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (d *DryRun) CreateList(_ context.Context, name string, domains []string) (provider.DomainList, error) {
	l := provider.DomainList{ID: d.nextID("list"), Name: name, Count: len(domains), Items: domains}
	d.createdLists = append(d.createdLists, l)
	d.log.WithFields(logrus.Fields{"list": name, "items": len(domains)}).Info("would create list")
	return l, nil
}

func (d *DryRun) DeleteList(_ context.Context, id string) error {
	d.deletedLists[id] = true
	d.log.WithField("id", id).Info("would delete list")
	return nil
}

func (d *DryRun) ListPolicies(ctx context.Context, prefix string) ([]provider.GatewayPolicy, error) {
	remote, err := d.policies.ListPolicies(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []provider.GatewayPolicy
	for _, p := range append(remote, d.createdPolicies...) {
		if d.deletedPolicies[p.ID] || !strings.HasPrefix(p.Name, prefix) {
			continue
		}
		if u, ok := d.updated[p.ID]; ok {
			p = u
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *DryRun) CreatePolicy(_ context.Context, name string, listIDs []string) (provider.GatewayPolicy, error) {
	traffic, err := provider.TrafficExpression(listIDs)
	if err != nil {
		return provider.GatewayPolicy{}, err
	}
	p := provider.GatewayPolicy{
		ID:      d.nextID("policy"),
		Name:    name,
		Action:  "block",
		Enabled: true,
		Traffic: traffic,
		ListIDs: listIDs,
	}
	d.createdPolicies = append(d.createdPolicies, p)
	d.log.WithFields(logrus.Fields{"policy": name, "lists": len(listIDs)}).Info("would create firewall policy")
	return p, nil
}

func (d *DryRun) UpdatePolicy(_ context.Context, name, id string, listIDs []string) (provider.GatewayPolicy, error) {
	traffic, err := provider.TrafficExpression(listIDs)
	if err != nil {
		return provider.GatewayPolicy{}, err
	}
	p := provider.GatewayPolicy{
		ID:      id,
		Name:    name,
		Action:  "block",
		Enabled: true,
		Traffic: traffic,
		ListIDs: listIDs,
	}
	d.updated[id] = p
	d.log.WithFields(logrus.Fields{"policy": name, "id": id, "lists": len(listIDs)}).Info("would update firewall policy")
	return p, nil
}

func (d *DryRun) DeletePolicy(_ context.Context, id string) error {
	d.deletedPolicies[id] = true
	d.log.WithField("id", id).Info("would delete firewall policy")
	return nil
}
