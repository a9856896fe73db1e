// Package sqltrace wraps data-access calls with timing and SQL logging.
//
// The interceptor identifies a SQL statement among a call's string
// arguments by a prefix heuristic over common verbs. It is a
// best-effort heuristic, not a parser: parameterized or wrapped query
// strings may be misclassified, and that is acceptable for diagnostic
// logging.
package sqltrace

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"time"

	"github.com/bovinemagnet/pg-console-sub010/internal/logging"
	"go.uber.org/zap"
)

// sqlVerbs are the statement prefixes recognized as SQL.
var sqlVerbs = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "WITH",
	"CREATE", "ALTER", "DROP", "EXPLAIN",
}

// UnknownRowCount is the sentinel for results whose shape yields no
// row count.
const UnknownRowCount int64 = -1

// Interceptor times data-access invocations and logs them through the
// dispatcher.
type Interceptor struct {
	logger *logging.Logger
}

// New creates an interceptor emitting through logger.
func New(logger *logging.Logger) *Interceptor {
	return &Interceptor{logger: logger}
}

// Around wraps one data-access invocation. method names the wrapped
// call for the generic timing log; args are its inputs, scanned for a
// SQL statement. The call's result and error are returned unchanged —
// a failure is logged at WARN and then rethrown, never swallowed.
func (i *Interceptor) Around(ctx context.Context, method string, args []any, call func(context.Context) (any, error)) (any, error) {
	stmt, hasSQL := findSQL(args)

	start := time.Now()
	result, err := call(ctx)
	duration := time.Since(start)

	if err != nil {
		fields := []zap.Field{
			zap.String("method", method),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.Int64("rows", UnknownRowCount),
			zap.Error(err),
		}
		if hasSQL {
			fields = append(fields, zap.String("query", stmt))
		}
		i.logger.Warn(ctx, logging.CategorySQL, "data access failed", fields...)
		return result, err
	}

	if hasSQL {
		i.logger.LogQuery(ctx, stmt, duration, RowCount(result))
	} else {
		i.logger.LogOperation(ctx, logging.CategoryPerformance, method, duration, true)
	}
	return result, nil
}

// findSQL returns the first string argument that looks like a SQL
// statement.
func findSQL(args []any) (string, bool) {
	for _, arg := range args {
		s, ok := arg.(string)
		if !ok {
			continue
		}
		if looksLikeSQL(s) {
			return s, true
		}
	}
	return "", false
}

// looksLikeSQL reports whether s starts with a recognized SQL verb,
// case-insensitively after trimming.
func looksLikeSQL(s string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	for _, verb := range sqlVerbs {
		if strings.HasPrefix(trimmed, verb) {
			return true
		}
	}
	return false
}

// RowCount derives a row count from a call result. Count-like values
// (integers, sql.Result) and list-like values (slices, arrays) yield a
// count; anything else yields UnknownRowCount, never zero.
func RowCount(result any) int64 {
	switch v := result.(type) {
	case nil:
		return UnknownRowCount
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case sql.Result:
		n, err := v.RowsAffected()
		if err != nil {
			return UnknownRowCount
		}
		return n
	}

	rv := reflect.ValueOf(result)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return int64(rv.Len())
	}
	return UnknownRowCount
}
