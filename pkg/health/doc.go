// Package health provides HTTP handlers for health probes.
//
// This package implements liveness and readiness endpoints compatible with
// Docker, Kubernetes, and 3rd-party monitoring services. It integrates with
// the healthcheck closures exposed by the db, redis, and job packages.
//
// [LivenessHandler] always answers OK while the process is running.
// [ReadinessHandler] runs a set of named [Checks] concurrently under a shared
// deadline and reports whether the service can accept traffic.
//
// # Quick Start
//
// Register health endpoints on the router:
//
//	r.Get("/health", health.LivenessHandler())
//	r.Get("/ready", health.ReadinessHandler(health.Checks{
//	    "database": db.Healthcheck(pool),
//	    "redis":    redis.Healthcheck(client),
//	    "queue":    job.Healthcheck(manager),
//	}, health.WithTimeout(3*time.Second), health.WithLogger(log)))
//
// # Response Formats
//
// Handlers respond with plain text by default for probe compatibility.
// Request JSON with an Accept: application/json header or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "database": {"status": "healthy", "latency_ms": 2},
//	    "redis":    {"status": "unhealthy", "error": "health: check failed\nconnection refused", "latency_ms": 10}
//	  }
//	}
//
// A check that exceeds the shared deadline is reported with
// [ErrCheckTimeout] in its error text, other failures with [ErrCheckFailed].
//
// # Kubernetes Configuration
//
// Example probe configuration:
//
//	livenessProbe:
//	  httpGet:
//	    path: /health
//	    port: 8080
//	  periodSeconds: 10
//
//	readinessProbe:
//	  httpGet:
//	    path: /ready
//	    port: 8080
//	  periodSeconds: 10
package health
