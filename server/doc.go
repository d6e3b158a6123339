// Package server exposes the navigator over HTTP and streams session
// snapshots, alert tones and spoken warnings to websocket clients.
package server
