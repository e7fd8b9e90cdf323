// Package logging wraps log/slog with the attribute helpers and handler
// construction used across opldock. The console format keeps request logs
// scannable during interactive use; the JSON format suits supervised
// deployments.
package logging
