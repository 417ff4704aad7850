// Package logger provides structured logging for the follower lookup engine.
//
// It wraps zerolog behind a small Logger interface so that packages can log
// with fields without depending on a concrete logging library, and so tests
// can substitute a capturing implementation (see TestLogger).
//
// Console output uses colored levels; when a log file is configured, output
// is duplicated to the file in JSON form.
package logger
