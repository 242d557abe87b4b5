// Package apperrors defines the gateway-wide error taxonomy, so callers can
// branch with errors.As instead of string matching. Validation, connect,
// query-execution, cancellation, not-supported and vault-key failures use
// these types; adapter introspection methods return the driver's own
// error unwrapped.
package apperrors

import "fmt"

// CanceledByUserTag is the stable tag a CanceledError exposes, per the
// spec's error-tag contract.
const CanceledByUserTag = "CANCELED_BY_USER"

// ValidationError reports a bad server descriptor submitted to the
// registry's add/update operations.
type ValidationError struct {
	Field     string
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q (%s): %s", e.Field, e.Validator, e.Message)
}

// ConnectError wraps a failure to establish a connection, whether at the
// tunnel or the driver layer.
type ConnectError struct {
	Dialect string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed for %s: %v", e.Dialect, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// QueryError wraps a driver-reported SQL error, preserving the original
// error and, for multi-statement batches, the index of the statement that
// failed.
type QueryError struct {
	StatementIndex int
	Err            error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error at statement %d: %v", e.StatementIndex, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CanceledError is produced when a query handle's cancellation succeeds.
type CanceledError struct {
	Query string
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("query canceled by user: %s", e.Query)
}

// Tag returns the stable cancellation tag required by the spec's error
// contract.
func (e *CanceledError) Tag() string { return CanceledByUserTag }

// NotSupportedError reports an operation the dialect adapter does not
// implement (e.g. Cassandra query cancellation).
type NotSupportedError struct {
	Operation string
	Dialect   string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by %s", e.Operation, e.Dialect)
}

// AuthError reports a vault decryption failure (unknown secret or
// corrupted ciphertext).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QueryNotReadyError is returned when Cancel is called on a query handle
// before it has reached the executing state (its cancellation token has
// not been registered yet).
type QueryNotReadyError struct{}

func (e *QueryNotReadyError) Error() string {
	return "query is not ready to be canceled"
}
