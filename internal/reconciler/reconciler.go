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

// Package reconciler converges the remote lists and block rule of one name
// prefix onto a desired domain sequence.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/provider"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

// ErrEmptyBlocklist is returned before any remote call when there is
// nothing to block.
var ErrEmptyBlocklist = errors.New("blocklist contains no domains")

// State is a step of a reconciliation run.
type State string

const (
	StateInitial    State = "INITIAL"
	StateSizeCheck  State = "SIZE_CHECK"
	StateSkip       State = "SKIP"
	StateRebuild    State = "REBUILD"
	StatePolicySync State = "POLICY_SYNC"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Result describes what a run observed and changed.
type Result struct {
	State State
	Path  []State

	Desired  int
	Existing int

	DeletedPolicies []string
	DeletedLists    []string
	CreatedLists    []provider.DomainList

	// Lists are the lists the policy references at the end of the run.
	Lists         []provider.DomainList
	Policy        provider.GatewayPolicy
	PolicyCreated bool
	PolicyUpdated bool

	Duration time.Duration
}

// Reconciler runs the sync algorithm against the two repositories. Calls
// are strictly sequential; nothing is rolled back on failure.
type Reconciler struct {
	Lists       ListRepository
	Policies    PolicyRepository
	MaxListSize int
	Clock       clock.Clock
	Log         logrus.FieldLogger
}

// New returns a Reconciler with the default list size and a real clock.
func New(lists ListRepository, policies PolicyRepository, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		Lists:       lists,
		Policies:    policies,
		MaxListSize: provider.MaxListSize,
		Clock:       clock.New(),
		Log:         log,
	}
}

// PolicyName is the name of the block rule owned by prefix.
func PolicyName(prefix string) string {
	return prefix + " Block Ads"
}

// ListName is the name of the index-th (1-based) list owned by prefix.
func ListName(prefix string, index int) string {
	return fmt.Sprintf("%s %d", prefix, index)
}

// Run converges the lists and the policy owned by prefix onto domains.
//
// Lists are rebuilt only when the total remote item count differs from
// len(domains); equal counts with different members are not detected.
// A rebuild deletes the old policies, then the old lists, then creates
// the new lists in order. Finally exactly one policy is made to reference
// the current lists; finding more than one is an *syncerr.InvariantError.
func (r *Reconciler) Run(ctx context.Context, prefix string, domains []string) (res Result, err error) {
	start := r.Clock.Now()
	defer func() { res.Duration = r.Clock.Since(start) }()
	log := r.Log.WithField("prefix", prefix)

	r.enter(&res, StateInitial)

	if len(domains) == 0 {
		return r.fail(&res, log, ErrEmptyBlocklist)
	}
	res.Desired = len(domains)

	r.enter(&res, StateSizeCheck)
	existing, err := r.Lists.ListLists(ctx, prefix)
	if err != nil {
		return r.fail(&res, log, err)
	}
	for _, l := range existing {
		res.Existing += l.Count
	}
	log.WithFields(logrus.Fields{
		"lists":    len(existing),
		"existing": res.Existing,
		"desired":  res.Desired,
	}).Info("compared remote lists")

	current := existing
	if res.Desired == res.Existing {
		r.enter(&res, StateSkip)
		log.Warn("lists are the same size, skipping rebuild")
	} else {
		r.enter(&res, StateRebuild)
		current, err = r.rebuild(ctx, log, prefix, domains, existing, &res)
		if err != nil {
			return r.fail(&res, log, err)
		}
	}
	res.Lists = current

	r.enter(&res, StatePolicySync)
	if err := r.syncPolicy(ctx, log, prefix, current, &res); err != nil {
		return r.fail(&res, log, err)
	}

	r.enter(&res, StateDone)
	log.WithFields(logrus.Fields{
		"lists_created":  len(res.CreatedLists),
		"lists_deleted":  len(res.DeletedLists),
		"policy":         res.Policy.ID,
		"policy_created": res.PolicyCreated,
		"policy_updated": res.PolicyUpdated,
	}).Info("done")
	return res, nil
}

func (r *Reconciler) rebuild(ctx context.Context, log logrus.FieldLogger, prefix string, domains []string, existing []provider.DomainList, res *Result) ([]provider.DomainList, error) {
	// Policies go first so no rule ever references a deleted list.
	policies, err := r.Policies.ListPolicies(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		log.WithField("policy", p.Name).Info("deleting policy")
		if err := r.Policies.DeletePolicy(ctx, p.ID); err != nil {
			return nil, err
		}
		res.DeletedPolicies = append(res.DeletedPolicies, p.ID)
	}

	for _, l := range existing {
		log.WithField("list", l.Name).Info("deleting list")
		if err := r.Lists.DeleteList(ctx, l.ID); err != nil {
			return nil, err
		}
		res.DeletedLists = append(res.DeletedLists, l.ID)
	}

	size := r.MaxListSize
	if size <= 0 {
		size = provider.MaxListSize
	}
	// Sequential: names are index based and must follow chunk order.
	var created []provider.DomainList
	for i, chunk := range Chunk(domains, size) {
		name := ListName(prefix, i+1)
		log.WithFields(logrus.Fields{"list": name, "items": len(chunk)}).Info("creating list")
		l, err := r.Lists.CreateList(ctx, name, chunk)
		if err != nil {
			return nil, err
		}
		created = append(created, l)
		res.CreatedLists = append(res.CreatedLists, l)
	}
	return created, nil
}

func (r *Reconciler) syncPolicy(ctx context.Context, log logrus.FieldLogger, prefix string, lists []provider.DomainList, res *Result) error {
	policies, err := r.Policies.ListPolicies(ctx, prefix)
	if err != nil {
		return err
	}
	log.WithField("policies", len(policies)).Info("fetched firewall policies")

	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	name := PolicyName(prefix)

	switch len(policies) {
	case 0:
		log.Info("creating firewall policy")
		p, err := r.Policies.CreatePolicy(ctx, name, ids)
		if err != nil {
			return err
		}
		res.Policy = p
		res.PolicyCreated = true
	case 1:
		p := policies[0]
		if sameIDs(p.ListIDs, ids) {
			log.WithField("policy", p.Name).Info("firewall policy already references current lists")
			res.Policy = p
			return nil
		}
		log.WithField("policy", p.Name).Info("updating firewall policy")
		updated, err := r.Policies.UpdatePolicy(ctx, name, p.ID, ids)
		if err != nil {
			return err
		}
		res.Policy = updated
		res.PolicyUpdated = true
	default:
		names := make([]string, 0, len(policies))
		for _, p := range policies {
			names = append(names, p.Name)
		}
		return &syncerr.InvariantError{
			Reason: fmt.Sprintf("%d firewall policies match prefix %q: %s", len(policies), prefix, strings.Join(names, ", ")),
		}
	}
	return nil
}

func (r *Reconciler) enter(res *Result, s State) {
	res.State = s
	res.Path = append(res.Path, s)
}

func (r *Reconciler) fail(res *Result, log logrus.FieldLogger, err error) (Result, error) {
	from := res.State
	r.enter(res, StateFailed)
	log.WithError(err).WithField("state", from).Error("reconciliation failed")
	return *res, fmt.Errorf("%s: %w", strings.ToLower(string(from)), err)
}

// sameIDs compares two id sets, ignoring order.
func sameIDs(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
