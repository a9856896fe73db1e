// Package redact removes sensitive data from text before it reaches any
// log sink.
//
// Redaction is a fixed-order pipeline of stages: connection-string
// passwords, quoted JSON key/value pairs, query-string parameters,
// Bearer/Basic auth tokens, user-configured key patterns, and optional
// PII masking. Each stage is idempotent, so re-applying the pipeline to
// its own output is a no-op.
//
// Redaction is irreversible: values are replaced with a fixed token and
// the originals are never retained.
package redact
