// Package main hosts the huddle CLI entrypoint and command graph.
//
// Commands load configuration once, assemble the process through
// internal/app, and call the same operations the HTTP server exposes. The
// serve and watch commands hand off to internal/daemonrun for long-running
// operation.
package main
