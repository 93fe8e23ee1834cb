// Package async runs background work with panic recovery and a bounded
// lifetime. The collector uses it for work that must not ride on a
// request: click inserts happen here so storage latency never delays a
// held navigation response.
package async
