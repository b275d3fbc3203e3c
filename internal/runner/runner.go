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

// Package runner wires the configured components together for one sync
// pass: download, extract, filter, reconcile and report.
package runner

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/blocklist"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/config"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/logger"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/metrics"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/provider"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/reconciler"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/transport"
)

// Runner holds the collaborators of a pass. Tests replace Fs and Clock.
type Runner struct {
	Config config.Config
	Log    *logrus.Logger
	Fs     afero.Fs
	Clock  clock.Clock
}

// New returns a Runner on the OS filesystem and the wall clock.
func New(cfg config.Config, log *logrus.Logger) *Runner {
	return &Runner{Config: cfg, Log: log, Fs: afero.NewOsFs(), Clock: clock.New()}
}

// Run executes one pass with a logger built from cfg.
func Run(ctx context.Context, cfg config.Config) (reconciler.Result, error) {
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return New(cfg, log).Run(ctx)
}

// Run downloads the blocklist, reconciles the remote state and pushes the
// run metrics when a Pushgateway is configured. Errors keep their
// syncerr type so the caller can pick an exit code.
func (r *Runner) Run(ctx context.Context) (reconciler.Result, error) {
	cfg := r.Config
	log := logger.Component(r.Log, "runner").WithFields(logrus.Fields{
		"list":     cfg.ListName,
		"provider": cfg.Provider,
		"dry_run":  cfg.DryRun,
	})
	log.Info("starting sync")

	httpClient := transport.New(transport.Options{
		Timeout:  cfg.RequestTimeout,
		RetryMax: cfg.RetryMax,
		Logger:   logger.Component(r.Log, "http"),
	})

	domains, err := r.domains(ctx, httpClient)
	if err != nil {
		log.WithError(err).Error("blocklist unavailable")
		r.report(ctx, log, reconciler.Result{State: reconciler.StateFailed}, false)
		return reconciler.Result{}, err
	}

	scope, err := provider.ScopeFor(cfg.Provider, cfg.Identifier)
	if err != nil {
		return reconciler.Result{}, &syncerr.ConfigError{Err: err}
	}
	client := provider.NewClient(
		cfg.APIBaseURL,
		cfg.Token,
		httpClient,
		provider.NewLimiter(cfg.RateLimit, r.Clock),
		cfg.RequestTimeout,
		logger.Component(r.Log, "provider"),
	)
	api := provider.NewAPI(client, scope)

	var lists reconciler.ListRepository = api
	var policies reconciler.PolicyRepository = api
	if cfg.DryRun {
		dry := reconciler.NewDryRun(api, api, logger.Component(r.Log, "dry-run"))
		lists, policies = dry, dry
	}

	rec := reconciler.New(lists, policies, logger.Component(r.Log, "reconciler"))
	rec.MaxListSize = cfg.MaxListSize
	rec.Clock = r.Clock

	res, err := rec.Run(ctx, cfg.NamePrefix(), domains)
	r.report(ctx, log, res, err == nil)
	if err != nil {
		return res, err
	}
	log.WithField("duration", res.Duration).Info("sync finished")
	return res, nil
}

func (r *Runner) domains(ctx context.Context, client *retryablehttp.Client) ([]string, error) {
	cfg := r.Config
	fetcher := blocklist.NewFetcher(client, r.Fs, cfg.WorkDir, logger.Component(r.Log, "fetcher"))
	text, err := fetcher.Fetch(ctx, cfg.ListName+".txt", cfg.ListURL)
	if err != nil {
		return nil, err
	}

	domains, format, err := blocklist.Extract(text)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", cfg.ListName, err)
	}
	log := logger.Component(r.Log, "extractor")
	log.WithFields(logrus.Fields{"format": format, "domains": len(domains)}).Info("extracted blocklist")

	filter := blocklist.NewFilter(cfg.ExcludeDomains, cfg.Strict, log)
	return filter.Apply(domains), nil
}

func (r *Runner) report(ctx context.Context, log logrus.FieldLogger, res reconciler.Result, ok bool) {
	if r.Config.PushgatewayURL == "" {
		return
	}
	rec := metrics.NewRecorder()
	rec.Observe(metrics.Run{
		Desired:      res.Desired,
		Existing:     res.Existing,
		ListsCreated: len(res.CreatedLists),
		ListsDeleted: len(res.DeletedLists),
		Rebuilt:      len(res.CreatedLists) > 0,
		Success:      ok,
		Duration:     res.Duration,
		Finished:     r.Clock.Now(),
	})
	// A push failure does not fail the run.
	if err := rec.Push(ctx, r.Config.PushgatewayURL, r.Config.ListName); err != nil {
		log.WithError(err).Warn("metrics push failed")
	}
}
