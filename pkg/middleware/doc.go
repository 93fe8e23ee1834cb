// Package middleware provides HTTP middleware for the collect and stats routes.
//
// # Overview
//
// This package implements request gating in front of the handlers: static
// bearer token authentication for the analytics endpoints and per-IP rate
// limiting for the collect endpoint (in-memory token bucket for a single
// replica, Redis fixed window when the collector scales out).
//
// # Middleware Components
//
// StatsAuthMiddleware: static token authentication
//
//	auth := middleware.NewStatsAuthMiddleware(cfg.API.StatsToken)
//	statsRouter.Use(auth.Handler)
//
// RateLimitMiddleware: in-memory per-IP rate limiting
//
//	rl := middleware.NewRateLimitMiddleware(nil) // 300/min, 50 burst
//	collectRouter.Use(rl.Handler)
//	rl.Limiter().StartCleanup(ctx)
//
// DistributedRateLimitMiddleware: Redis-backed per-IP rate limiting
//
//	rl := middleware.NewDistributedRateLimitMiddleware(redisClient, nil)
//	collectRouter.Use(rl.Handler)
//
// The distributed limiter fails open on Redis errors: losing click
// telemetry to a cache outage is worse than briefly losing the ceiling.
//
// # Related Packages
//
//   - pkg/api: wires these onto the router
//   - pkg/httputil: recovery, CORS and body-cap middleware
package middleware
