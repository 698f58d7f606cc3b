// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is the zero value, used when a call succeeds.
	CategoryNoError Category = iota
	// CategoryValidation The client sent malformed data, for example an
	// invalid address or a missing field. Nothing was mutated.
	CategoryValidation
	// CategoryNotFound The client referenced an identity or request that
	// does not exist. Nothing was mutated.
	CategoryNotFound
	// CategoryConflict The request conflicts with current state: duplicate
	// approval, recovery already in progress, request not in the expected
	// status. Nothing was mutated; the caller may retry after inspecting state.
	CategoryConflict
	// CategoryDependency An external service (chain RPC, attestation service,
	// swap, custody provider) failed after internal retries were exhausted.
	CategoryDependency
	// CategoryTimeout A bounded polling ceiling (attestation or transaction
	// confirmation) was exceeded. The message carries enough context, such as
	// the last known tx hash, for manual resumption.
	CategoryTimeout
	// CategoryFatalMigration The on-chain recovery execution (migration
	// phase 1) failed. The only category that moves a request to FAILED.
	CategoryFatalMigration
	// CategoryGeneral The service failed in an unexpected way.
	CategoryGeneral
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "CategoryValidation"
	case CategoryNotFound:
		return "CategoryNotFound"
	case CategoryConflict:
		return "CategoryConflict"
	case CategoryDependency:
		return "CategoryDependency"
	case CategoryTimeout:
		return "CategoryTimeout"
	case CategoryFatalMigration:
		return "CategoryFatalMigration"
	default:
		return "CategoryGeneral"
	}
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is implements the custom condition to check an error is equal to a service error
func (err ServiceError) Is(target error) bool {
	return err.Message == target.Error()
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// GeneralError returns a general service error
// the error message sent to the user is "Internal Server Error"
// the error passed is logged in the logger
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryGeneral,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// ValidationError returns an error with category Validation
// the error message provided is returned to the user
// the error object provided is logged in logger
func ValidationError(err error, message string) error {
	if err == nil {
		err = errors.New("validation failed: " + message)
	}
	return &ServiceError{
		Category: CategoryValidation,
		Message:  message,
		Err:      err,
	}
}

// NotFoundError returns an error with category NotFound
// the error message provided is returned to the user
// the err object provided is logged in logger
func NotFoundError(err error, message string) error {
	if err == nil {
		err = errors.New("not found: " + message)
	}
	return &ServiceError{
		Category: CategoryNotFound,
		Message:  message,
		Err:      err,
	}
}

// ConflictError returns an error with category Conflict
// the error message provided is returned to the user
// the error object provided is logged in logger
func ConflictError(err error, message string) error {
	if err == nil {
		err = errors.New("conflict: " + message)
	}
	return &ServiceError{
		Category: CategoryConflict,
		Message:  message,
		Err:      err,
	}
}

// DependencyError returns an error with category Dependency
// the error message provided is returned to the user
// the error object provided is logged in logger
func DependencyError(err error, message string) error {
	if err == nil {
		err = errors.New("dependency failure: " + message)
	}
	return &ServiceError{
		Category: CategoryDependency,
		Message:  message,
		Err:      err,
	}
}

// TimeoutError returns an error with category Timeout
// the error message provided is returned to the user
// the error object provided is logged in logger
func TimeoutError(err error, message string) error {
	if err == nil {
		err = errors.New("timeout: " + message)
	}
	return &ServiceError{
		Category: CategoryTimeout,
		Message:  message,
		Err:      err,
	}
}

// FatalMigrationError returns an error with category FatalMigration
// raised only when the on-chain recovery execution itself fails
func FatalMigrationError(err error, message string) error {
	if err == nil {
		err = errors.New("migration failed: " + message)
	}
	return &ServiceError{
		Category: CategoryFatalMigration,
		Message:  message,
		Err:      err,
	}
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryDependency:
		return http.StatusBadGateway
	case CategoryTimeout:
		return http.StatusGatewayTimeout
	case CategoryFatalMigration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
