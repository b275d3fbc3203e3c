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

// Package metrics records the outcome of a sync run and pushes it to a
// Prometheus Pushgateway. The job exits after one run, so nothing is
// scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "gateway_adblock"
	job       = "gateway_adblock_sync"
)

// Run is what one sync run reports.
type Run struct {
	Desired      int
	Existing     int
	ListsCreated int
	ListsDeleted int
	Rebuilt      bool
	Success      bool
	Duration     time.Duration
	Finished     time.Time
}

// Recorder owns a private registry of run gauges.
type Recorder struct {
	registry *prometheus.Registry

	desired      prometheus.Gauge
	existing     prometheus.Gauge
	listsCreated prometheus.Gauge
	listsDeleted prometheus.Gauge
	rebuilt      prometheus.Gauge
	success      prometheus.Gauge
	duration     prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// NewRecorder returns a Recorder with every gauge registered.
func NewRecorder() *Recorder {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	r := &Recorder{
		registry:     prometheus.NewRegistry(),
		desired:      gauge("desired_domains", "Domains in the filtered blocklist."),
		existing:     gauge("existing_domains", "Domains held by the remote lists before the run."),
		listsCreated: gauge("lists_created", "Remote lists created by the run."),
		listsDeleted: gauge("lists_deleted", "Remote lists deleted by the run."),
		rebuilt:      gauge("rebuilt", "1 if the run rebuilt the remote lists."),
		success:      gauge("last_run_success", "1 if the last run succeeded."),
		duration:     gauge("last_run_duration_seconds", "Duration of the last reconciliation."),
		lastSuccess:  gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
	}
	r.registry.MustRegister(
		r.desired, r.existing, r.listsCreated, r.listsDeleted,
		r.rebuilt, r.success, r.duration, r.lastSuccess,
	)
	return r
}

// Observe sets the gauges from run.
func (r *Recorder) Observe(run Run) {
	r.desired.Set(float64(run.Desired))
	r.existing.Set(float64(run.Existing))
	r.listsCreated.Set(float64(run.ListsCreated))
	r.listsDeleted.Set(float64(run.ListsDeleted))
	r.rebuilt.Set(boolGauge(run.Rebuilt))
	r.success.Set(boolGauge(run.Success))
	r.duration.Set(run.Duration.Seconds())
	if run.Success {
		r.lastSuccess.Set(float64(run.Finished.Unix()))
	}
}

// Push replaces the metrics of the job grouped by list name at url.
func (r *Recorder) Push(ctx context.Context, url, list string) error {
	if err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("list", list).
		PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
