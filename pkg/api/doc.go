// Package api is the HTTP surface of the collector: the click collect
// endpoint the page SDK posts to, and the token-protected analytics
// endpoints backed by the rollup tables.
package api
