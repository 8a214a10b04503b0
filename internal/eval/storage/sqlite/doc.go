// Package sqlite persists evaluation runs and their per-frame results.
// The schema is owned by internal/db migrations.
package sqlite
