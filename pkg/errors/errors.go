package errors

import (
	"errors"
	"fmt"
)

// Error types for stage-level classification of failures

// ErrorType represents the pipeline stage or category an error belongs to
type ErrorType string

const (
	ErrorTypePrerequisite ErrorType = "prerequisite"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBuild        ErrorType = "build"
	ErrorTypeDeploy       ErrorType = "deploy"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeUsage        ErrorType = "usage"
	ErrorTypePlatform     ErrorType = "platform"
	ErrorTypeIO           ErrorType = "io"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeCancelled    ErrorType = "cancelled"
)

// ErrorCode identifies the specific failure within a type
type ErrorCode string

const (
	CodeNone              ErrorCode = ""
	CodeToolNotInstalled  ErrorCode = "tool_not_installed"
	CodeEngineUnreachable ErrorCode = "engine_unreachable"
	CodeMissingConfigFile ErrorCode = "missing_config_file"
	CodeMissingKey        ErrorCode = "missing_key"
	CodePlaceholderValue  ErrorCode = "placeholder_value"
	CodeInvalidValue      ErrorCode = "invalid_value"
	CodeBuildFailed       ErrorCode = "build_failed"
	CodeDeployFailed      ErrorCode = "deploy_failed"
	CodeHealthTimeout     ErrorCode = "health_timeout"
	CodeUnknownCommand    ErrorCode = "unknown_command"
	CodeUnknownService    ErrorCode = "unknown_service"
)

// DomainError represents a structured error with type, code and context
type DomainError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on type, and on code when the target carries one
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		if e.Type != other.Type {
			return false
		}
		return other.Code == CodeNone || e.Code == other.Code
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode sets the specific error code
func (e *DomainError) WithCode(code ErrorCode) *DomainError {
	e.Code = code
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Generic constructors

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewPlatformError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePlatform, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

// Prerequisite errors

func NewToolNotInstalledError(tool string, cause error) *DomainError {
	return NewDomainError(ErrorTypePrerequisite, fmt.Sprintf("%s is not installed", tool), cause).
		WithCode(CodeToolNotInstalled).WithContext("tool", tool)
}

func NewEngineUnreachableError(tool string, cause error) *DomainError {
	return NewDomainError(ErrorTypePrerequisite, fmt.Sprintf("%s engine is not reachable", tool), cause).
		WithCode(CodeEngineUnreachable).WithContext("tool", tool)
}

// Environment validation errors

func NewMissingConfigFileError(path string, cause error) *DomainError {
	return NewValidationError(fmt.Sprintf("configuration file %s is missing", path), cause).
		WithCode(CodeMissingConfigFile).WithContext("path", path)
}

func NewMissingKeyError(key string) *DomainError {
	return NewValidationError(fmt.Sprintf("required key %s is not set", key), nil).
		WithCode(CodeMissingKey).WithContext("key", key)
}

func NewPlaceholderValueError(key string) *DomainError {
	return NewValidationError(fmt.Sprintf("key %s still holds a placeholder value", key), nil).
		WithCode(CodePlaceholderValue).WithContext("key", key)
}

func NewInvalidValueError(key string, cause error) *DomainError {
	return NewValidationError(fmt.Sprintf("key %s has an invalid value", key), cause).
		WithCode(CodeInvalidValue).WithContext("key", key)
}

// Lifecycle errors

func NewBuildFailedError(service string, cause error) *DomainError {
	return NewDomainError(ErrorTypeBuild, fmt.Sprintf("build of %s failed", service), cause).
		WithCode(CodeBuildFailed).WithContext("service", service)
}

func NewDeployFailedError(scope string, cause error) *DomainError {
	return NewDomainError(ErrorTypeDeploy, fmt.Sprintf("deployment of %s failed", scope), cause).
		WithCode(CodeDeployFailed).WithContext("scope", scope)
}

func NewHealthTimeoutError(services []string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, fmt.Sprintf("services not healthy: %v", services), cause).
		WithCode(CodeHealthTimeout).WithContext("services", services)
}

// Usage errors

func NewUnknownCommandError(name string) *DomainError {
	return NewDomainError(ErrorTypeUsage, fmt.Sprintf("unknown command %q", name), nil).
		WithCode(CodeUnknownCommand).WithContext("command", name)
}

func NewUnknownServiceError(name string, known []string) *DomainError {
	return NewDomainError(ErrorTypeUsage, fmt.Sprintf("unknown service %q (known: %v)", name, known), nil).
		WithCode(CodeUnknownService).WithContext("service", name)
}

// Error checking helpers

func isType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errorType
}

func IsPrerequisiteError(err error) bool { return isType(err, ErrorTypePrerequisite) }
func IsValidationError(err error) bool   { return isType(err, ErrorTypeValidation) }
func IsBuildError(err error) bool        { return isType(err, ErrorTypeBuild) }
func IsDeployError(err error) bool       { return isType(err, ErrorTypeDeploy) }
func IsTimeoutError(err error) bool      { return isType(err, ErrorTypeTimeout) }
func IsUsageError(err error) bool        { return isType(err, ErrorTypeUsage) }
func IsPlatformError(err error) bool     { return isType(err, ErrorTypePlatform) }
func IsIOError(err error) bool           { return isType(err, ErrorTypeIO) }
func IsInternalError(err error) bool     { return isType(err, ErrorTypeInternal) }
func IsCancelledError(err error) bool    { return isType(err, ErrorTypeCancelled) }

// CodeOf returns the code of the outermost DomainError in the chain that carries one
func CodeOf(err error) ErrorCode {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok && domainErr.Code != CodeNone {
			return domainErr.Code
		}
		err = errors.Unwrap(err)
	}
	return CodeNone
}

// HasCode reports whether any DomainError in the chain carries the code
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok && domainErr.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Error aggregation for bulk validation
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
