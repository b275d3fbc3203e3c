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

	"github.com/gateway-adblock/gateway-adblock-sync/internal/provider"
)

// ListRepository manages the remote domain lists. The reconciler depends
// on this interface rather than on provider.API so tests can swap in fakes.
type ListRepository interface {
	ListLists(ctx context.Context, prefix string) ([]provider.DomainList, error)
	CreateList(ctx context.Context, name string, domains []string) (provider.DomainList, error)
	DeleteList(ctx context.Context, id string) error
}

// PolicyRepository manages the remote block rule.
type PolicyRepository interface {
	ListPolicies(ctx context.Context, prefix string) ([]provider.GatewayPolicy, error)
	CreatePolicy(ctx context.Context, name string, listIDs []string) (provider.GatewayPolicy, error)
	UpdatePolicy(ctx context.Context, name, id string, listIDs []string) (provider.GatewayPolicy, error)
	DeletePolicy(ctx context.Context, id string) error
}

var (
	_ ListRepository   = (*provider.API)(nil)
	_ PolicyRepository = (*provider.API)(nil)
)
