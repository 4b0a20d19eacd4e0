// Package api exposes the primality kernel over length-prefixed Arrow
// IPC messages. This package implements:
// - TCP server with one goroutine per connection
// - Request handler bridging IPC payloads to the kernel
// - Optional token authentication handshake
// - Prometheus metrics and the /metrics HTTP server
package api
