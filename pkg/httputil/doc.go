// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, overview)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteValidationError(w, "page_url is required")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req ClickRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	partner, ok := httputil.ParsePathStringOrError(w, r, "partner")
//
// Query parameters:
//
//	period := httputil.ParseQueryString(r, "period", "30d")
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware,
//		httputil.CORSMiddleware([]string{"https://coinrader.net"}),
//		httputil.ContentTypeMiddleware,
//		httputil.MaxBytesMiddleware(64*1024), // 64KB
//	)
//
// # Related Packages
//
//   - pkg/middleware: Rate limiting and authentication middleware
//   - pkg/observability: Request logging and metrics middleware
package httputil
