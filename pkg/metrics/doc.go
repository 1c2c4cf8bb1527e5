/*
Package metrics provides Prometheus metrics collection and exposition for KeyCortex.

All metrics are defined in a single var block with the keycortex_ prefix and
registered against the default registry at package init, so importing any
package that touches metrics is enough to make the full set scrapeable. The
exposition handler is mounted on /metrics by the service.

# Architecture

	┌────────────────── METRICS SYSTEM ───────────────────┐
	│                                                       │
	│  ┌─────────────────────────────────────────┐        │
	│  │        Prometheus Registry               │        │
	│  │  - Global DefaultRegistry                │        │
	│  │  - MustRegister at package init          │        │
	│  │  - Automatic Go runtime metrics          │        │
	│  └──────────────────┬──────────────────────┘        │
	│                     │                                 │
	│  ┌──────────────────▼──────────────────────┐        │
	│  │          Metric Categories               │        │
	│  │                                           │        │
	│  │  Store: wallets, bindings, challenges    │        │
	│  │  API: request count, duration            │        │
	│  │  Domain: signatures, submits, audits     │        │
	│  │  JWKS: refresh outcomes, key count       │        │
	│  │  Dual-write: fallback counters           │        │
	│  └──────────────────┬──────────────────────┘        │
	│                     │                                 │
	│  ┌──────────────────▼──────────────────────┐        │
	│  │       Collection Sources                 │        │
	│  │                                           │        │
	│  │  Collector: 15s gauge sweep over the     │        │
	│  │    keystore and challenge store          │        │
	│  │  Inline: handlers increment counters     │        │
	│  │    and observe durations as they run     │        │
	│  │  Refresher: JWKS outcomes per iteration  │        │
	│  └──────────────────────────────────────────┘        │
	└───────────────────────────────────────────────────────┘

# Metric Inventory

Gauges reflect instantaneous store state (wallet count, binding count,
in-memory challenge count, loaded JWKS key count). Counters only move
forward: API requests by method and status, signatures by purpose,
submits by acceptance, audit events by type and outcome, JWKS refresh
attempts by outcome, and Postgres failures absorbed by the local store.
One histogram vec tracks API request latency per method.

# Usage

Handlers observe inline:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
	metrics.APIRequestsTotal.WithLabelValues(r.Method, "200").Inc()

Background gauges come from the Collector:

	collector := metrics.NewCollector(store, challenges)
	collector.Start()
	defer collector.Stop()

Exposition:

	mux.Handle("/metrics", metrics.Handler())

# Integration Points

  - pkg/service: request counters, duration histogram, domain counters
  - pkg/identity: JWKS refresh outcomes and key-count gauge
  - pkg/repository: dual-write fallback counters
  - cmd/keycortex: starts and stops the Collector around serve
*/
package metrics
