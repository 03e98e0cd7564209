package errors

import (
	"context"
	stdErrors "errors"
	"strings"
)

// Postgres SQLSTATE codes that indicate the store could not complete the
// statement but a retry may succeed.
var transientPGCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled
	"53300": {}, // too_many_connections
}

// Rejections caused by the values written rather than by the store.
var inputPGCodes = map[string]struct{}{
	"22003": {}, // numeric_value_out_of_range
	"23514": {}, // check_violation
}

// ClassifyStore maps a raw persistence error onto a typed error. Errors that
// already carry a code pass through untouched. Transient store failures become
// CodeDependency, out-of-range values become CodeValidation and everything
// else becomes CodeInternal.
func ClassifyStore(err error, message string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	if IsTransientStore(err) {
		return Wrap(CodeDependency, err, message)
	}
	if _, ok := inputPGCodes[SQLState(err)]; ok {
		return Wrap(CodeValidation, err, message)
	}
	return Wrap(CodeInternal, err, message)
}

// IsTransientStore reports whether err looks like a serialization conflict,
// lock timeout, deadline, or lost connection.
func IsTransientStore(err error) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	code := SQLState(err)
	if code == "" {
		return false
	}
	if _, ok := transientPGCodes[code]; ok {
		return true
	}
	// class 08: connection exception
	return strings.HasPrefix(code, "08")
}

// SQLState returns the Postgres error code anywhere in err's chain, or "".
func SQLState(err error) string {
	pg, _ := postgresDiagnostics(err)
	return pg.Code
}
