// Package utils holds small internal helpers shared across the gateway:
// JSON-over-HTTP POST plumbing for provider calls (synchronous and
// streaming) and string formatting utilities for log output.
package utils
