// Package logging is the structured log dispatcher for pgconsole.
//
// Every log event carries a category (SQL, SECURITY, AUDIT, ...) and is
// dispatched through a per-category named zap logger under the
// configured namespace, e.g. "pgconsole.SQL". Before anything is
// formatted, the dispatcher consults the LevelManager for the
// category's effective threshold; events below threshold cost neither
// redaction nor encoding.
//
// Request-scoped fields (correlation id, user, instance) travel on
// context.Context and are merged into every event emitted during that
// request. Caller-supplied fields win on key conflict.
//
// Levels are adjustable at runtime per category, including temporary
// overrides that revert automatically after a duration.
package logging
