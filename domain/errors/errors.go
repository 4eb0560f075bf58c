// Package errors provides the error taxonomy of the native module bridge.
// All error types support unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-native/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can describe themselves
// as a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ErrLibraryReleased is returned by Info and Open on a Library that has been released.
var ErrLibraryReleased = stdErrors.New("library has been released")

// ErrForeignSession is returned when a Session is used with a Library loaded
// from a different image than the one that opened it.
var ErrForeignSession = stdErrors.New("session belongs to a different module image")

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// PathValidationError is returned when a module path does not carry the
// platform dynamic-library suffix. No load is attempted.
type PathValidationError struct {
	Path     string
	Expected string
}

func (e *PathValidationError) Error() string {
	return fmt.Sprintf("invalid module file extension for %s: expected %q", e.Path, e.Expected)
}

// ToErrorDetail implements DetailedError.
func (e *PathValidationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "path", Code: "extension"}
}

// DynamicLoadError is returned when the shared-library image fails to load.
type DynamicLoadError struct {
	Err  error
	Path string
}

func (e *DynamicLoadError) Error() string {
	return fmt.Sprintf("failed to load module %s: %v", e.Path, e.Err)
}

func (e *DynamicLoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *DynamicLoadError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "load", Code: "dlopen"}
}

// SymbolResolutionError is returned when a required entry point is missing
// or cannot be bound to its expected signature.
type SymbolResolutionError struct {
	Err    error
	Symbol string
	Path   string
}

func (e *SymbolResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to resolve symbol %s in %s: %v", e.Symbol, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to resolve symbol %s: %v", e.Symbol, e.Err)
}

func (e *SymbolResolutionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SymbolResolutionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "symbol", Code: e.Symbol}
}

// EncodingError is returned when a host string cannot be converted to a
// NUL-terminated buffer because it contains an embedded NUL byte.
type EncodingError struct {
	Err   error
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s as C string: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *EncodingError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "encoding", Code: e.Field}
}

// OpenError is returned when the module's Open entry point yields a null handle.
type OpenError struct {
	Client         string
	MaxPayloadSize uint32
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("Open() failed for client %q (max payload %d bytes): null handle", e.Client, e.MaxPayloadSize)
}

// ToErrorDetail implements DetailedError.
func (e *OpenError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "open", Code: "null_handle"}
}

// ModuleCallError is returned when an entry point reports a non-success status
// and the operation gates on it.
type ModuleCallError struct {
	Operation string
	Status    entities.Status
}

func (e *ModuleCallError) Error() string {
	return fmt.Sprintf("%s() failed: %d", e.Operation, e.Status)
}

// ToErrorDetail implements DetailedError.
func (e *ModuleCallError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("module", e.Error()).
		WithCode(e.Operation).
		WithDetails(map[string]any{"status": int32(e.Status)})
}

// CheckStatus converts a non-success status into a *ModuleCallError.
// It returns nil for StatusOK.
func CheckStatus(operation string, status entities.Status) error {
	if status.OK() {
		return nil
	}
	return &ModuleCallError{Operation: operation, Status: status}
}

// SchemaError represents a payload that does not decode into the expected schema.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "schema", Code: e.Type}
}

// SessionClosedError is returned when an operation is attempted on a session
// that has already been passed to Close. The module is not called.
type SessionClosedError struct {
	Operation string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("%s() called on closed session", e.Operation)
}

// ToErrorDetail implements DetailedError.
func (e *SessionClosedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "session", Code: e.Operation}
}

// PayloadSizeError is returned when the caller-supplied Set size cannot be
// passed to the module without reading outside the payload buffer.
type PayloadSizeError struct {
	Size   int
	Length int
}

func (e *PayloadSizeError) Error() string {
	return fmt.Sprintf("payload size %d out of range for %d-byte payload", e.Size, e.Length)
}

// ToErrorDetail implements DetailedError.
func (e *PayloadSizeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "payload", Code: "size"}
}
